package krx

import (
	"testing"
	"time"
)

func TestParseKRXNumber(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
	}{
		{"with commas", "405,160,000,000,000", 405160000000000},
		{"plain", "1000000", 1000000},
		{"with spaces", " 1,234 ", 1234},
		{"zero", "0", 0},
		{"dash means missing", "-", 0},
		{"empty string", "", 0},
		{"invalid", "abc", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseKRXNumber(tt.input); got != tt.want {
				t.Errorf("parseKRXNumber(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseKRXFloat(t *testing.T) {
	if got := parseKRXFloat("12.53"); got == nil || *got != 12.53 {
		t.Errorf("parseKRXFloat(12.53) = %v", got)
	}
	if got := parseKRXFloat("1,023.10"); got == nil || *got != 1023.10 {
		t.Errorf("parseKRXFloat with comma = %v", got)
	}
	// 적자 기업의 PER는 "-"로 내려온다
	if got := parseKRXFloat("-"); got != nil {
		t.Errorf("parseKRXFloat(-) = %v, want nil", got)
	}
	if got := parseKRXFloat(""); got != nil {
		t.Errorf("parseKRXFloat(empty) = %v, want nil", got)
	}
}

func TestTradeDate(t *testing.T) {
	// 월요일 오전에는 직전 금요일
	mondayMorning := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)
	if got := tradeDate(mondayMorning); got.Weekday() != time.Friday {
		t.Errorf("tradeDate(monday morning) = %v, want Friday", got.Weekday())
	}

	// 평일 장 마감 후에는 당일
	wednesdayEvening := time.Date(2025, 9, 3, 18, 0, 0, 0, time.UTC)
	if got := tradeDate(wednesdayEvening); !got.Equal(wednesdayEvening) {
		t.Errorf("tradeDate(wednesday evening) = %v, want same day", got)
	}

	// 주말에는 금요일
	saturday := time.Date(2025, 9, 6, 12, 0, 0, 0, time.UTC)
	if got := tradeDate(saturday); got.Weekday() != time.Friday {
		t.Errorf("tradeDate(saturday) = %v, want Friday", got.Weekday())
	}
}

func TestIndexRows(t *testing.T) {
	rows := []snapshotRow{
		{Code: "005930", Name: "삼성전자"},
		{Code: "000660", Name: "SK하이닉스"},
	}
	m := indexRows(rows)
	if len(m) != 2 {
		t.Fatalf("indexRows len = %d, want 2", len(m))
	}
	if m["005930"].Name != "삼성전자" {
		t.Errorf("unexpected row: %+v", m["005930"])
	}
}
