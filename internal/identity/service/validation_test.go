package service

import (
	"strconv"
	"strings"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		ok       bool
	}{
		{"Ab1!xy", true},
		{"Wonder1and!", true},
		{"Ab1!x", false},
		{"ab1!xy", false},
		{"AB1!XY", false},
		{"Abc!xy", false},
		{"Abc1xy", false},
		{"Ab1 xy", true},
		{"Ab1!" + strings.Repeat("x", 68), true},
		{"Ab1!" + strings.Repeat("x", 69), false},
		{"Ab1!" + strings.Repeat("é", 35), false},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(len(tt.password))+"/"+tt.password[:4], func(t *testing.T) {
			err := validatePassword(tt.password)
			if (err == nil) != tt.ok {
				t.Errorf("validatePassword(%q) = %v, want ok=%v", tt.password, err, tt.ok)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	for _, name := range []string{"alice", "alice.smith", "a-b_c@d+e", "Alice99"} {
		if err := validateUsername(name); err != nil {
			t.Errorf("validateUsername(%q) = %v", name, err)
		}
	}
	for _, name := range []string{"alice smith", "alice!", "ąžuolas"} {
		if err := validateUsername(name); err == nil {
			t.Errorf("validateUsername(%q) should fail", name)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	if err := validateEmail("alice@example.com"); err != nil {
		t.Errorf("validateEmail: %v", err)
	}
	for _, email := range []string{"alice", "alice@", "@example.com", "alice@example"} {
		if err := validateEmail(email); err == nil {
			t.Errorf("validateEmail(%q) should fail", email)
		}
	}
}
