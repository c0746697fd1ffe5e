package bridges

import "testing"

func TestCanalOrder(t *testing.T) {
	all := All()
	if len(all) != 5 {
		t.Fatalf("got %d bridges, want 5", len(all))
	}
	for i, b := range all {
		if b.Order != i {
			t.Errorf("bridge %s has order %d at index %d", b.ID, b.Order, i)
		}
		if i > 0 && all[i].Lat <= all[i-1].Lat {
			t.Errorf("canal order not strictly south to north at %s", b.ID)
		}
	}
}

func TestByIDAndByName(t *testing.T) {
	b, ok := ByID(Jarnvagsbron)
	if !ok || b.Name != "Järnvägsbron" {
		t.Fatalf("ByID(jarnvagsbron) = %+v, %v", b, ok)
	}
	if b.Class != Intermediate {
		t.Errorf("Järnvägsbron class = %v, want intermediate", b.Class)
	}

	b2, ok := ByName("Järnvägsbron")
	if !ok || b2.ID != Jarnvagsbron {
		t.Errorf("ByName roundtrip failed: %+v, %v", b2, ok)
	}

	if _, ok := ByID("nonexistent"); ok {
		t.Error("ByID accepted unknown ID")
	}
}

func TestTargets(t *testing.T) {
	targets := Targets()
	if len(targets) != 2 {
		t.Fatalf("got %d targets, want 2", len(targets))
	}
	if targets[0].ID != Klaffbron || targets[1].ID != Stridsbergsbron {
		t.Errorf("targets = %s, %s", targets[0].ID, targets[1].ID)
	}
}

func TestGap(t *testing.T) {
	tests := []struct {
		from, to string
		want     float64
	}{
		{Olidebron, Klaffbron, 290},
		{Klaffbron, Jarnvagsbron, 610},
		{Jarnvagsbron, Stridsbergsbron, 560},
		{Stridsbergsbron, Stallbackabron, 1410},
		{Klaffbron, Stridsbergsbron, 1170},
		{Olidebron, Stallbackabron, 2870},
		{Stallbackabron, Olidebron, 2870}, // symmetric
		{Klaffbron, Klaffbron, 0},
	}
	for _, tt := range tests {
		got, ok := Gap(tt.from, tt.to)
		if !ok {
			t.Errorf("Gap(%s, %s) not ok", tt.from, tt.to)
			continue
		}
		if got != tt.want {
			t.Errorf("Gap(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}

	if _, ok := Gap("bogus", Klaffbron); ok {
		t.Error("Gap accepted unknown bridge")
	}
}

func TestNextTarget(t *testing.T) {
	tests := []struct {
		from       string
		northbound bool
		want       string
		ok         bool
	}{
		{Olidebron, true, Klaffbron, true},
		{Klaffbron, true, Stridsbergsbron, true},
		{Jarnvagsbron, true, Stridsbergsbron, true},
		{Stridsbergsbron, true, "", false}, // only Stallbackabron left, never a target
		{Stallbackabron, false, Stridsbergsbron, true},
		{Stridsbergsbron, false, Klaffbron, true},
		{Klaffbron, false, "", false},
	}
	for _, tt := range tests {
		got, ok := NextTarget(tt.from, tt.northbound)
		if ok != tt.ok {
			t.Errorf("NextTarget(%s, %v) ok = %v, want %v", tt.from, tt.northbound, ok, tt.ok)
			continue
		}
		if ok && got.ID != tt.want {
			t.Errorf("NextTarget(%s, %v) = %s, want %s", tt.from, tt.northbound, got.ID, tt.want)
		}
	}
}

func TestInBoundingBox(t *testing.T) {
	for _, b := range All() {
		if !InBoundingBox(b.Lat, b.Lon) {
			t.Errorf("bridge %s outside the subscription box", b.ID)
		}
	}
	if InBoundingBox(59.33, 18.07) { // Stockholm
		t.Error("position far outside the canal accepted")
	}
}
