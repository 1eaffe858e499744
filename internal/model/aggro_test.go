package model

import "testing"

func TestAggroList_AddHate(t *testing.T) {
	list := NewAggroList()

	list.AddHate(1001, 50)
	list.AddHate(1001, 30)

	info := list.Get(1001)
	if info == nil {
		t.Fatal("expected AggroInfo for 1001")
	}
	if info.Hate() != 80 {
		t.Errorf("Hate() = %v, want 80", info.Hate())
	}
}

func TestAggroList_AddDamage(t *testing.T) {
	list := NewAggroList()

	list.AddDamage(2001, 100)
	list.AddDamage(2001, 50)

	info := list.Get(2001)
	if info == nil {
		t.Fatal("expected AggroInfo for 2001")
	}
	if info.Damage() != 150 {
		t.Errorf("Damage() = %d, want 150", info.Damage())
	}
	if info.Hate() != 0 {
		t.Errorf("Hate() = %v, want 0", info.Hate())
	}
}

func TestAggroList_MostHated(t *testing.T) {
	tests := []struct {
		name string
		hate map[ObjectID]float64
		want ObjectID
	}{
		{"empty", nil, 0},
		{"single", map[ObjectID]float64{7: 1}, 7},
		{"highest wins", map[ObjectID]float64{1001: 50, 1002: 100, 1003: 30}, 1002},
		{"tie picks lowest id", map[ObjectID]float64{9: 40, 4: 40, 6: 10}, 4},
		{"registered with zero hate", map[ObjectID]float64{12: 0}, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list := NewAggroList()
			for id, h := range tt.hate {
				list.AddHate(id, h)
			}
			if got := list.MostHated(); got != tt.want {
				t.Errorf("MostHated() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAggroList_Remove(t *testing.T) {
	list := NewAggroList()

	list.AddHate(1001, 50)
	list.AddHate(1002, 100)

	list.Remove(1002)

	if got := list.MostHated(); got != 1001 {
		t.Errorf("after Remove(1002), MostHated() = %d, want 1001", got)
	}
	if list.Get(1002) != nil {
		t.Error("Get(1002) should return nil after Remove")
	}
	if list.Len() != 1 {
		t.Errorf("Len() = %d, want 1", list.Len())
	}
}

func TestAggroList_Clear(t *testing.T) {
	list := NewAggroList()

	if !list.IsEmpty() {
		t.Error("new AggroList should be empty")
	}

	list.AddHate(1001, 50)
	list.AddHate(1002, 100)
	if list.IsEmpty() {
		t.Error("AggroList with entries should not be empty")
	}

	list.Clear()

	if !list.IsEmpty() {
		t.Error("IsEmpty() should return true after Clear")
	}
}
