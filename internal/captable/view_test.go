package captable

import (
	"strings"
	"testing"
	"time"

	"solana-captable/internal/domain"
)

var reportTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleState() *domain.TokenState {
	s := domain.NewTokenState("mint-1")
	s.Symbol = "ACME"
	s.Slot = 400
	s.Seq = 1
	s.TotalSupply = 2000
	s.LastValuation = 10_000_000
	s.EntriesApplied = 7
	s.Balances["alice"] = 1200
	s.Balances["bob"] = 800
	s.ApprovedWallets["alice"] = true
	s.ApprovedWallets["bob"] = true
	s.Positions[domain.PositionKey{Wallet: "alice", ShareClassID: "common"}] = &domain.Position{
		Shares: 1200, Priority: domain.DefaultPriority, PreferenceMultiple: domain.DefaultPreferenceMultiple,
	}
	s.Positions[domain.PositionKey{Wallet: "bob", ShareClassID: "series-a"}] = &domain.Position{
		Shares: 800, CostBasis: 400_000, Priority: 1, PreferenceMultiple: 1.5,
	}
	s.VestingSchedules["vest-1"] = &domain.VestingScheduleState{
		ScheduleID: "vest-1", Beneficiary: "carol", TotalAmount: 500, ReleasedAmount: 125,
		StartTime: 1000, DurationSeconds: 86400, Interval: domain.IntervalDay,
	}
	return s
}

func sampleClasses() []*domain.ShareClass {
	return []*domain.ShareClass{
		{ClassID: "series-a", TokenID: "mint-1", Name: "Series A Preferred", Priority: 1, PreferenceMultiple: 1.5},
		{ClassID: "common", TokenID: "mint-1", Name: "Common", Priority: domain.DefaultPriority, PreferenceMultiple: 1.0},
	}
}

func TestBuildViewRowsSortedAndNamed(t *testing.T) {
	view, err := BuildView(sampleState(), sampleClasses(), reportTime)
	if err != nil {
		t.Fatalf("BuildView: %v", err)
	}

	if len(view.Positions) != 2 {
		t.Fatalf("positions = %d, want 2", len(view.Positions))
	}
	if view.Positions[0].Wallet != "alice" || view.Positions[0].ClassName != "Common" {
		t.Errorf("top row = %s/%s, want alice/Common", view.Positions[0].Wallet, view.Positions[0].ClassName)
	}
	if view.Positions[1].ClassName != "Series A Preferred" {
		t.Errorf("class name = %q, want registry name", view.Positions[1].ClassName)
	}
	if got := view.Positions[0].OwnershipPct.StringFixed(4); got != "60.0000" {
		t.Errorf("alice ownership = %s, want 60.0000", got)
	}
	if got := view.Positions[1].OwnershipPct.StringFixed(4); got != "40.0000" {
		t.Errorf("bob ownership = %s, want 40.0000", got)
	}
	if view.HolderCount != 2 || view.TotalSupply != 2000 {
		t.Errorf("summary = %d holders / %d supply", view.HolderCount, view.TotalSupply)
	}
	if view.VestingOutstanding != 375 {
		t.Errorf("vesting outstanding = %d, want 375", view.VestingOutstanding)
	}
}

func TestBuildViewFallsBackToClassID(t *testing.T) {
	view, err := BuildView(sampleState(), nil, reportTime)
	if err != nil {
		t.Fatalf("BuildView: %v", err)
	}
	for _, row := range view.Positions {
		if row.ClassName != row.ShareClassID {
			t.Errorf("class %s rendered as %q without registry", row.ShareClassID, row.ClassName)
		}
	}
}

func TestBuildViewSkipsEmptiedPositions(t *testing.T) {
	state := sampleState()
	state.Positions[domain.PositionKey{Wallet: "dave", ShareClassID: "common"}] = &domain.Position{Shares: 0}

	view, err := BuildView(state, sampleClasses(), reportTime)
	if err != nil {
		t.Fatalf("BuildView: %v", err)
	}
	for _, row := range view.Positions {
		if row.Wallet == "dave" {
			t.Fatal("zero-share position should not be rendered")
		}
	}
}

func TestRenderCSV(t *testing.T) {
	view, err := BuildView(sampleState(), sampleClasses(), reportTime)
	if err != nil {
		t.Fatalf("BuildView: %v", err)
	}

	csv := RenderCSV(view)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 3 {
		t.Fatalf("csv lines = %d, want header + 2 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "wallet,share_class_id") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if lines[1] != "alice,common,Common,1200,0,99,1.00,60.0000,true" {
		t.Errorf("unexpected first row: %s", lines[1])
	}
}

func TestRenderMarkdown(t *testing.T) {
	view, err := BuildView(sampleState(), sampleClasses(), reportTime)
	if err != nil {
		t.Fatalf("BuildView: %v", err)
	}

	md := RenderMarkdown(view)
	for _, want := range []string{
		"# Cap Table: ACME",
		"Generated: 2026-03-01T12:00:00Z",
		"| Total Supply | 2000 |",
		"| alice | Common | 1200 | 60.0000 |",
		"| bob | Series A Preferred | 800 | 40.0000 | 400000 | 1 | 1.50x | true |",
		"## Vesting",
		"| vest-1 | carol | 500 | 125 | 375 | false |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}
