package models

import "testing"

// TestWorkoutVolume verifies volume is sets × reps × weight.
func TestWorkoutVolume(t *testing.T) {
	tests := []struct {
		name string
		row  WorkoutRow
		want float64
	}{
		{"basic", WorkoutRow{Sets: 3, Reps: 8, WeightKg: 80}, 1920},
		{"fractional weight", WorkoutRow{Sets: 4, Reps: 10, WeightKg: 22.5}, 900},
		{"single set", WorkoutRow{Sets: 1, Reps: 1, WeightKg: 140}, 140},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.row.Volume(); got != tt.want {
				t.Errorf("Volume() = %v, want %v", got, tt.want)
			}
		})
	}
}
