package words

import "testing"

func TestAmountToWords(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		expect string
	}{
		{"zero", 0, "Zero Rupees Only"},
		{"paise_only", 0.5, "Zero Rupees and Fifty Paise Only"},
		{"single_digit", 5, "Five Rupees Only"},
		{"teens", 15, "Fifteen Rupees Only"},
		{"hundreds", 150, "One Hundred Fifty Rupees Only"},
		{"thousands", 5000, "Five Thousand Rupees Only"},
		{"lakh_with_paise", 150075.50, "One Lakh Fifty Thousand Seventy Five Rupees and Fifty Paise Only"},
		{"lakhs", 913183, "Nine Lakh Thirteen Thousand One Hundred Eighty Three Rupees Only"},
		{"crores", 12345678, "One Crore Twenty Three Lakh Forty Five Thousand Six Hundred Seventy Eight Rupees Only"},
		{"large_crore", 1500000000, "One Hundred Fifty Crore Rupees Only"},
		{"paise_rounding", 10.005, "Ten Rupees and One Paise Only"},
		{"negative", -2176, "Minus Two Thousand One Hundred Seventy Six Rupees Only"},
		{"past_int64_paise", 1e17, "One Thousand Crore Crore Rupees Only"},
		{"past_int64_rupees", 1e20, "Ten Lakh Crore Crore Rupees Only"},
		{"negative_large", -1e17, "Minus One Thousand Crore Crore Rupees Only"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AmountToWords(tt.amount); got != tt.expect {
				t.Errorf("AmountToWords(%v) = %q, want %q", tt.amount, got, tt.expect)
			}
		})
	}
}

func TestInteger(t *testing.T) {
	if got := Integer(0); got != "Zero" {
		t.Fatalf("Integer(0) = %q", got)
	}
	if got := Integer(100000); got != "One Lakh" {
		t.Fatalf("Integer(100000) = %q", got)
	}
	if got := Integer(1010); got != "One Thousand Ten" {
		t.Fatalf("Integer(1010) = %q", got)
	}
}
