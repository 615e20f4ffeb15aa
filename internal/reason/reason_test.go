package reason

import "testing"

func TestIsGuard(t *testing.T) {
	tests := []struct {
		code Code
		want bool
	}{
		{Empty, true},
		{NotSelect, true},
		{ForbiddenKeyword, true},
		{MultiStatement, true},
		{UnknownTable, true},
		{ExecutionError, false},
		{Timeout, false},
		{Code("SOMETHING_ELSE"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := tt.code.IsGuard(); got != tt.want {
				t.Errorf("%s.IsGuard() = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}
