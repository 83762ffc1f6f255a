package voice

import "testing"

func TestCleanQuery(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"agrega 2 coca cola al carrito", "coca cola"},
		{"Agrega dos Coca Cola al carrito, por favor", "coca cola"},
		{"compra una leche", "leche"},
		{"busca zapatos rojos", "zapatos rojos"},
		{"quita la coca cola del carrito", "coca cola"},
		{"añade pan integral x3", "pan integral"},
		{"agrega 2 llantas 4x4", "llantas 4x4"},
		{"pon café molido por 2", "café molido"},
		{"agrega pan de molde", "pan de molde"},
		{"agrega al carrito", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := CleanQuery(tt.text); got != tt.want {
			t.Errorf("CleanQuery(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}
