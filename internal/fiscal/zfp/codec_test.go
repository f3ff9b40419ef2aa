package zfp

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/adcondev/fiscal-daemon/internal/fiscal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestBuildItemPayload(t *testing.T) {
	tests := []struct {
		name     string
		dept     int
		text     string
		price    string
		taxGroup fiscal.TaxGroup
		qty      string
		modValue string
		modType  fiscal.PriceModifierType
		want     string
		wantErr  error
	}{
		{
			name: "tax group path with quantity",
			text: "Bread", price: "1.50", taxGroup: fiscal.TaxGroupB, qty: "2",
			want: fiscal.FixWidth("Bread", 36) + ";B;1.50*2",
		},
		{
			name: "zero quantity omits the suffix",
			text: "Bread", price: "1.50", taxGroup: fiscal.TaxGroupB, qty: "0",
			want: fiscal.FixWidth("Bread", 36) + ";B;1.50",
		},
		{
			name: "department path is offset hex",
			dept: 3, text: "Milk", price: "2.00", qty: "0",
			want: fiscal.FixWidth("Milk", 36) + ";83;2.00",
		},
		{
			name: "department 127 renders FF",
			dept: 127, text: "Milk", price: "2.00", qty: "0",
			want: fiscal.FixWidth("Milk", 36) + ";FF;2.00",
		},
		{
			name: "department above 127 would overflow the hex field",
			dept: 128, text: "Milk", price: "2.00", qty: "0",
			wantErr: fiscal.ErrInvalidArgument,
		},
		{
			name: "percent discount uses comma delimiter",
			text: "Wine", price: "10.00", taxGroup: fiscal.TaxGroupA, qty: "0",
			modValue: "5.00", modType: fiscal.ModifierDiscountPercent,
			want: fiscal.FixWidth("Wine", 36) + ";A;10.00,-5.00",
		},
		{
			name: "amount surcharge uses colon delimiter",
			text: "Wine", price: "10.00", taxGroup: fiscal.TaxGroupA, qty: "0",
			modValue: "0.30", modType: fiscal.ModifierSurchargeAmount,
			want: fiscal.FixWidth("Wine", 36) + ";A;10.00:+0.30",
		},
		{
			name: "long name truncated at the fixed width",
			text: strings.Repeat("x", 50), price: "1.00", taxGroup: fiscal.TaxGroupA, qty: "0",
			want: strings.Repeat("x", 36) + ";A;1.00",
		},
		{
			name: "unknown modifier rejected",
			text: "Wine", price: "10.00", taxGroup: fiscal.TaxGroupA, qty: "0",
			modValue: "1.00", modType: "half-off",
			wantErr: fiscal.ErrUnsupportedValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			modValue := decimal.Zero
			if tt.modValue != "" {
				modValue = dec(tt.modValue)
			}
			got, err := buildItemPayload(tt.dept, tt.text, dec(tt.price), tt.taxGroup,
				dec(tt.qty), modValue, tt.modType)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v; want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("payload = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestBuildItemPayload_NameWidthIsExact(t *testing.T) {
	payload, err := buildItemPayload(0, "Bread", dec("1.50"), fiscal.TaxGroupB,
		decimal.Zero, decimal.Zero, fiscal.ModifierNone)
	if err != nil {
		t.Fatal(err)
	}
	name := strings.SplitN(payload, ";", 2)[0]
	if len([]rune(name)) != itemNameWidth {
		t.Errorf("name field is %d chars; want %d", len([]rune(name)), itemNameWidth)
	}
}

func TestSubtotalPayload(t *testing.T) {
	if got := subtotalPayload(dec("2.50")); got != "1;1;:+2.50" {
		t.Errorf("surcharge payload = %q; want 1;1;:+2.50", got)
	}
	if got := subtotalPayload(dec("-2.50")); got != "1;1;:-2.50" {
		t.Errorf("discount payload = %q; want 1;1;:-2.50", got)
	}
}

func TestParseLastReceipt(t *testing.T) {
	info, err := parseLastReceipt("FM123456*0042*14-03-2026 12:30:00*3.00")
	if err != nil {
		t.Fatalf("parseLastReceipt() error: %v", err)
	}
	if info.FiscalMemorySerialNumber != "FM123456" {
		t.Errorf("FMSerial = %q", info.FiscalMemorySerialNumber)
	}
	if info.ReceiptNumber != "0042" {
		t.Errorf("ReceiptNumber = %q", info.ReceiptNumber)
	}
	if got := info.ReceiptDateTime.Format(dateTimeLayout); got != "14-03-2026 12:30:00" {
		t.Errorf("ReceiptDateTime = %q", got)
	}
	if info.ReceiptAmount.StringFixed(2) != "3.00" {
		t.Errorf("ReceiptAmount = %s", info.ReceiptAmount.StringFixed(2))
	}

	for _, bad := range []string{"", "a*b*c", "a*b*not-a-date*1.00", "a*b*14-03-2026 12:30:00*NaNa"} {
		if _, err := parseLastReceipt(bad); !errors.Is(err, fiscal.ErrProtocolSyntax) {
			t.Errorf("parseLastReceipt(%q) err = %v; want ErrProtocolSyntax", bad, err)
		}
	}
}
