package chat

import "testing"

func TestDerivePrivateRoom(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want string
	}{
		{
			name: "already sorted",
			a:    "alice",
			b:    "bob",
			want: "private_alice_bob",
		},
		{
			name: "reversed order",
			a:    "bob",
			b:    "alice",
			want: "private_alice_bob",
		},
		{
			name: "uuid-like ids",
			a:    "b2c3",
			b:    "a1f4",
			want: "private_a1f4_b2c3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DerivePrivateRoom(tt.a, tt.b)
			if got != tt.want {
				t.Errorf("DerivePrivateRoom(%q, %q) = %q, want %q", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDerivePrivateRoom_Symmetric(t *testing.T) {
	if DerivePrivateRoom("u1", "u2") != DerivePrivateRoom("u2", "u1") {
		t.Error("DerivePrivateRoom() should be symmetric in its arguments")
	}
}

func TestValidKind(t *testing.T) {
	tests := []struct {
		kind string
		want bool
	}{
		{KindText, true},
		{KindImage, true},
		{KindFile, true},
		{"", false},
		{"video", false},
		{"TEXT", false},
	}

	for _, tt := range tests {
		if got := ValidKind(tt.kind); got != tt.want {
			t.Errorf("ValidKind(%q) = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestPersonalRoom(t *testing.T) {
	if got := PersonalRoom("user-42"); got != "user-42" {
		t.Errorf("PersonalRoom() = %q, want %q", got, "user-42")
	}
}
