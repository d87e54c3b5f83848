package batch

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
)

const sampleBatch = `[
  {"messages": [{"role": "system", "content": "ignored"}, {"role": "user", "content": "退貨流程？"}, {"role": "user", "content": "second"}]},
  {"messages": []},
  "not an object",
  {"messages": [{"role": "assistant", "content": "hi"}]},
  {"messages": [{"role": "user", "content": "我要找真人"}]}
]`

type processorFake struct{}

func (processorFake) ProcessQueryDetailed(_ context.Context, query string) domain.QueryTrace {
	if strings.Contains(query, "真人") {
		return domain.QueryTrace{ConversationID: "c-handoff", Intent: domain.IntentHandoff, Path: domain.PathHandoff, Answer: domain.HandoffMessage}
	}
	return domain.QueryTrace{
		ConversationID: "c-faq",
		Intent:         domain.IntentPolicyInquiry,
		Path:           domain.PathGoldenTicket,
		Decision:       domain.Decision{Strategy: domain.StrategyDirect, TopScore: 1},
		Answer:         "請於七日內申請。",
	}
}

func TestParseQueriesTakesFirstUserMessageAndSkipsMalformed(t *testing.T) {
	queries, skipped, err := ParseQueries(strings.NewReader(sampleBatch))
	if err != nil {
		t.Fatalf("ParseQueries() error = %v", err)
	}
	if len(queries) != 2 {
		t.Fatalf("expected 2 queries, got %+v", queries)
	}
	if queries[0].Text != "退貨流程？" || queries[0].Position != 1 || queries[1].Position != 5 {
		t.Fatalf("unexpected queries %+v", queries)
	}
	if len(skipped) != 3 || skipped[0].Position != 2 || skipped[2].Reason != errNoUserMessage.Error() {
		t.Fatalf("unexpected skipped %+v", skipped)
	}
}

func TestParseQueriesRejectsNonArray(t *testing.T) {
	if _, _, err := ParseQueries(strings.NewReader(`{"messages": []}`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestRunnerEchoesAnswersAndBuildsRows(t *testing.T) {
	queries, skipped, err := ParseQueries(strings.NewReader(sampleBatch))
	if err != nil {
		t.Fatalf("ParseQueries() error = %v", err)
	}

	var out bytes.Buffer
	runner := NewRunner(processorFake{}, &out, slog.New(slog.NewTextHandler(io.Discard, nil)))
	rows := runner.Run(context.Background(), queries, skipped, 5)

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Strategy != "direct" || rows[1].Strategy != "" || rows[1].Response != domain.HandoffMessage {
		t.Fatalf("unexpected rows %+v", rows)
	}
	text := out.String()
	for _, want := range []string{"Query (1/5): 退貨流程？", "Response: 請於七日內申請。", "Skipped malformed entry #2"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output %q", want, text)
		}
	}
}

func TestRunnerStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rows := NewRunner(processorFake{}, io.Discard, nil).Run(ctx, []Query{{Position: 1, Text: "q"}}, nil, 1)
	if len(rows) != 0 {
		t.Fatalf("expected no rows after cancellation, got %d", len(rows))
	}
}

func sampleRows() []ReportRow {
	return []ReportRow{
		{Position: 1, ConversationID: "c1", Query: "退貨流程？", Intent: "policy_inquiry", Path: "golden_ticket", Strategy: "direct", TopScore: 1, Response: "請於七日內申請。"},
	}
}

func TestWriteReportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.csv")
	if err := WriteReport(path, sampleRows()); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open report: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if len(records) != 2 || records[0][0] != "position" || records[1][2] != "退貨流程？" || records[1][6] != "1.0000" {
		t.Fatalf("unexpected report %v", records)
	}
}

func TestWriteReportWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	if err := WriteReport(path, sampleRows()); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("report")
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 2 || rows[0][1] != "conversation_id" || rows[1][7] != "請於七日內申請。" {
		t.Fatalf("unexpected workbook rows %v", rows)
	}
}
