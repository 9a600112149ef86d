package auth

import "testing"

func TestRegisterRequest_Validate(t *testing.T) {
	valid := RegisterRequest{Name: "Amina Noor", Email: "amina@example.com", Password: "secret1", ConfirmPassword: "secret1"}

	tests := []struct {
		name   string
		mutate func(*RegisterRequest)
		field  string
		want   string
	}{
		{"valid", func(*RegisterRequest) {}, "", ""},
		{"name missing", func(r *RegisterRequest) { r.Name = "" }, "name", "Name is required"},
		{"name with digits", func(r *RegisterRequest) { r.Name = "R2D2" }, "name", "Only letters & spaces allowed"},
		{"email missing", func(r *RegisterRequest) { r.Email = "" }, "email", "Email is required"},
		{"email without domain dot", func(r *RegisterRequest) { r.Email = "a@b" }, "email", "Invalid email format"},
		{"email with space", func(r *RegisterRequest) { r.Email = "a b@c.so" }, "email", "Invalid email format"},
		{"password missing", func(r *RegisterRequest) { r.Password, r.ConfirmPassword = "", "" }, "password", "Password is required"},
		{"password short", func(r *RegisterRequest) { r.Password, r.ConfirmPassword = "12345", "12345" }, "password", "Min 6 characters"},
		{"confirm missing", func(r *RegisterRequest) { r.ConfirmPassword = "" }, "confirmPassword", "Please confirm password"},
		{"confirm mismatch", func(r *RegisterRequest) { r.ConfirmPassword = "secret2" }, "confirmPassword", "Passwords do not match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			errs := req.Validate()
			if tt.field == "" {
				if !errs.Empty() {
					t.Fatalf("expected no errors, got %v", errs)
				}
				return
			}
			if got := errs[tt.field]; got != tt.want {
				t.Errorf("errs[%q] = %q, want %q (all: %v)", tt.field, got, tt.want, errs)
			}
		})
	}
}

func TestRegisterRequest_ReportsEveryField(t *testing.T) {
	errs := (&RegisterRequest{}).Validate()
	for _, field := range []string{"name", "email", "password", "confirmPassword"} {
		if errs[field] == "" {
			t.Errorf("missing error for %s", field)
		}
	}
}

func TestRegisterRequest_Normalize(t *testing.T) {
	req := RegisterRequest{Name: "  Amina ", Email: " a@b.so ", Password: " pw "}
	req.Normalize()
	if req.Name != "Amina" || req.Email != "a@b.so" {
		t.Errorf("normalized = %+v", req)
	}
	if req.Password != " pw " {
		t.Error("passwords must not be trimmed")
	}
}

func TestLoginRequest_Validate(t *testing.T) {
	errs := (&LoginRequest{}).Validate()
	if errs["email"] != "Enter email" || errs["password"] != "Enter password" {
		t.Errorf("errs = %v", errs)
	}
	if errs := (&LoginRequest{Email: "a@b.so", Password: "x"}).Validate(); !errs.Empty() {
		t.Errorf("presence is all that is checked, got %v", errs)
	}
}
