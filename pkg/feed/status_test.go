package feed

import "testing"

func TestReduceStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses map[string]LoadingStatus
		want     LoadingStatus
	}{
		{
			name:     "empty map is unknown",
			statuses: nil,
			want:     StatusUnknown,
		},
		{
			name:     "single ready source",
			statuses: map[string]LoadingStatus{"a": StatusReady},
			want:     StatusReady,
		},
		{
			name:     "all sources errored",
			statuses: map[string]LoadingStatus{"a": StatusError, "b": StatusError},
			want:     StatusError,
		},
		{
			name:     "one error with a surviving ready source degrades to ready",
			statuses: map[string]LoadingStatus{"a": StatusError, "b": StatusReady},
			want:     StatusReady,
		},
		{
			name:     "one error with an exhausted source degrades to no-more-items",
			statuses: map[string]LoadingStatus{"a": StatusError, "b": StatusNoMoreItems},
			want:     StatusNoMoreItems,
		},
		{
			name:     "loading wins over ready",
			statuses: map[string]LoadingStatus{"a": StatusLoading, "b": StatusReady},
			want:     StatusLoading,
		},
		{
			name:     "loading wins over exhausted",
			statuses: map[string]LoadingStatus{"a": StatusLoading, "b": StatusNoMoreItems},
			want:     StatusLoading,
		},
		{
			name:     "one source with more pages keeps composite ready",
			statuses: map[string]LoadingStatus{"a": StatusNoMoreItems, "b": StatusReady},
			want:     StatusReady,
		},
		{
			name:     "all exhausted",
			statuses: map[string]LoadingStatus{"a": StatusNoMoreItems, "b": StatusNoMoreItems},
			want:     StatusNoMoreItems,
		},
		{
			name:     "all cancelled",
			statuses: map[string]LoadingStatus{"a": StatusCancelled, "b": StatusCancelled},
			want:     StatusCancelled,
		},
		{
			name:     "cancelled after one source finished",
			statuses: map[string]LoadingStatus{"a": StatusNoMoreItems, "b": StatusCancelled},
			want:     StatusCancelled,
		},
		{
			name:     "all unknown",
			statuses: map[string]LoadingStatus{"a": StatusUnknown, "b": StatusUnknown},
			want:     StatusUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReduceStatus(tt.statuses); got != tt.want {
				t.Errorf("ReduceStatus(%v) = %v, want %v", tt.statuses, got, tt.want)
			}
		})
	}
}

func TestLoadingStatus_Terminal(t *testing.T) {
	terminal := []LoadingStatus{StatusNoMoreItems, StatusError, StatusCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%v should be terminal", s)
		}
	}
	for _, s := range []LoadingStatus{StatusUnknown, StatusLoading, StatusReady} {
		if s.Terminal() {
			t.Errorf("%v should not be terminal", s)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Newtonsoft.Json", "newtonsoft.json"},
		{"my_package", "my-package"},
		{"  Spaces  ", "spaces"},
		{"already-normal", "already-normal"},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
