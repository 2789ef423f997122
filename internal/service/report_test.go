package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hanbit-dev/fleamart/internal/domain"
	"github.com/hanbit-dev/fleamart/internal/service"
)

func TestReportStore_Submit(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	seller := e.signup(t, "seller", "seller@example.com", "passw0rd!")
	productID := e.registerProduct(t, "Desk lamp", "Warm white, adjustable arm.", 12000)
	if err := e.sessions.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	reporter := e.signup(t, "buyer", "buyer@example.com", "passw0rd!")
	report, err := e.reports.Submit(ctx, service.SubmitReportInput{
		TargetUserID:    seller.ID,
		TargetProductID: productID,
		Reason:          domain.ReportFraud,
		Detail:          "Item never shipped & seller stopped replying.",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if report.ID == 0 || report.ReporterID != reporter.ID {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Detail != "Item never shipped &amp; seller stopped replying." {
		t.Fatalf("detail not escaped: %q", report.Detail)
	}
	if report.Processed {
		t.Fatal("a fresh report must be unprocessed")
	}
	if got := lastAuditAction(t, e); got != "report_submitted" {
		t.Fatalf("expected report_submitted audit, got %s", got)
	}
}

func TestReportStore_SubmitRejections(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	// Anonymous callers cannot report.
	_, err := e.reports.Submit(ctx, service.SubmitReportInput{
		TargetUserID: 1,
		Reason:       domain.ReportMisleading,
		Detail:       "advertising in every listing",
	})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	e.signup(t, "buyer", "buyer@example.com", "passw0rd!")

	tests := []struct {
		name string
		in   service.SubmitReportInput
		want error
	}{
		{"unknown reason", service.SubmitReportInput{
			TargetUserID: 1, Reason: "grumpy", Detail: "does not matter here",
		}, domain.ErrInvalidInput},
		{"no target", service.SubmitReportInput{
			Reason: domain.ReportMisleading, Detail: "no one to point at",
		}, domain.ErrInvalidInput},
		{"hostile detail", service.SubmitReportInput{
			TargetUserID: 1, Reason: domain.ReportMisleading, Detail: "<script>alert(1)</script>",
		}, domain.ErrSecurityRejected},
		{"empty detail", service.SubmitReportInput{
			TargetUserID: 1, Reason: domain.ReportMisleading, Detail: "",
		}, domain.ErrInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.reports.Submit(ctx, tc.in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestReportStore_ListOpenAndResolve(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	seller := e.signup(t, "seller", "seller@example.com", "passw0rd!")
	e.registerProduct(t, "Desk lamp", "Warm white, adjustable arm.", 12000)
	if err := e.sessions.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	e.signup(t, "buyer", "buyer@example.com", "passw0rd!")
	report, err := e.reports.Submit(ctx, service.SubmitReportInput{
		TargetUserID: seller.ID,
		Reason:       domain.ReportFraud,
		Detail:       "Paid for the lamp, never received it.",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Non-admins cannot read or resolve the queue.
	if _, err := e.reports.ListOpen(ctx); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-admin ListOpen, got %v", err)
	}
	if err := e.reports.Resolve(ctx, report.ID, false); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-admin Resolve, got %v", err)
	}
	if err := e.sessions.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	e.signup(t, "operator", "admin@example.com", "passw0rd!")
	open, err := e.reports.ListOpen(ctx)
	if err != nil {
		t.Fatalf("ListOpen: %v", err)
	}
	if len(open) != 1 || open[0].ID != report.ID {
		t.Fatalf("unexpected open reports: %+v", open)
	}

	// Resolving with blockSeller pushes the target into the blocked set.
	if err := e.reports.Resolve(ctx, report.ID, true); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	open, err = e.reports.ListOpen(ctx)
	if err != nil {
		t.Fatalf("ListOpen after resolve: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("expected empty queue, got %d", len(open))
	}
	if err := e.reports.Resolve(ctx, report.ID, false); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for double resolve, got %v", err)
	}

	// The seller's listing is now hidden from non-admin viewers.
	if err := e.sessions.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	products, err := e.catalog.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(products) != 0 {
		t.Fatalf("expected blocked seller's listing hidden, got %d", len(products))
	}
}

func TestReportStore_ResolveUnknownReport(t *testing.T) {
	e := newTestEnv(t)

	e.signup(t, "operator", "admin@example.com", "passw0rd!")
	if err := e.reports.Resolve(context.Background(), 42, false); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
