package naver

import (
	"testing"
)

const itemMainFixture = `
<html><body>
<div class="aside_invest_info">
  <table>
    <tr><th>시가총액</th><td><em id="_market_sum">388조 1,294</em>억원</td></tr>
    <tr><th>PER</th><td><em id="_per">12.53</em>배</td></tr>
    <tr><th>PBR</th><td><em id="_pbr">1.41</em>배</td></tr>
    <tr><th>배당수익률</th><td><em id="_dvr">2.21</em>%</td></tr>
  </table>
</div>
</body></html>`

const itemMainMissingFixture = `
<html><body>
<em id="_market_sum">5,120</em>
<em id="_per">N/A</em>
<em id="_pbr">0.85</em>
<em id="_dvr">-</em>
</body></html>`

func TestParseItemMain(t *testing.T) {
	data, err := parseItemMain(itemMainFixture)
	if err != nil {
		t.Fatalf("parseItemMain() error = %v", err)
	}

	if want := int64(388_000_000_000_000 + 1294*100_000_000); data.MarketCap != want {
		t.Errorf("MarketCap = %d, want %d", data.MarketCap, want)
	}
	if data.PER == nil || *data.PER != 12.53 {
		t.Errorf("PER = %v, want 12.53", data.PER)
	}
	if data.PBR == nil || *data.PBR != 1.41 {
		t.Errorf("PBR = %v, want 1.41", data.PBR)
	}
	if data.DivYield == nil || *data.DivYield != 2.21 {
		t.Errorf("DivYield = %v, want 2.21", data.DivYield)
	}
}

func TestParseItemMain_MissingValues(t *testing.T) {
	data, err := parseItemMain(itemMainMissingFixture)
	if err != nil {
		t.Fatalf("parseItemMain() error = %v", err)
	}

	// 조 단위 없는 소형주 시가총액
	if want := int64(5120 * 100_000_000); data.MarketCap != want {
		t.Errorf("MarketCap = %d, want %d", data.MarketCap, want)
	}
	// 적자 기업 PER는 N/A로 내려온다
	if data.PER != nil {
		t.Errorf("PER = %v, want nil", data.PER)
	}
	if data.DivYield != nil {
		t.Errorf("DivYield = %v, want nil", data.DivYield)
	}
}

func TestParseItemMain_EmptyPage(t *testing.T) {
	if _, err := parseItemMain("<html><body></body></html>"); err == nil {
		t.Error("expected error for page without quote metrics")
	}
}

func TestParseMarketSum(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"388조 1,294", 388_000_000_000_000 + 1294*100_000_000},
		{"1,294", 1294 * 100_000_000},
		{"2조", 2_000_000_000_000},
		{"", 0},
		{"abc", 0},
	}
	for _, tt := range tests {
		if got := parseMarketSum(tt.input); got != tt.want {
			t.Errorf("parseMarketSum(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}
