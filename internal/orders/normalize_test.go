package orders

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"+7 (900) 123-45-67", "9001234567"},
		{"89001234567", "9001234567"},
		{"79001234567", "9001234567"},
		{"9001234567", "9001234567"},
		{"8 800", "8800"},
		{"", ""},
		{"no digits here", ""},
		{"+44 1234 567890 12345 678", "441234567890123"},
	}
	for _, tc := range cases {
		if got := NormalizePhone(tc.in); got != tc.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeClient_Defaults(t *testing.T) {
	c := NormalizeClient(ClientInfo{Name: "  ", Phone: "+7 (900) 123-45-67", Email: " a@b.c "})
	if c.Name != DefaultClientName {
		t.Fatalf("expected placeholder name, got %q", c.Name)
	}
	if c.PhoneCode != "+7" || c.Phone != "9001234567" {
		t.Fatalf("unexpected phone: %s %s", c.PhoneCode, c.Phone)
	}
	if c.Email != "a@b.c" {
		t.Fatalf("expected trimmed email, got %q", c.Email)
	}
	if c.CardNumber != nil {
		t.Fatalf("card number must be null")
	}
}
