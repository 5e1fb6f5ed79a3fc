package report

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spounge-ai/sysaudit/internal/domain"
)

// Check names posted for every audited instance.
const (
	CheckRemotePassword = "sys_remote_password_connections"
	CheckLocalPassword  = "sys_local_password_connections"
)

// CheckPoster submits check results to the change-detection store.
type CheckPoster interface {
	Submit(ctx context.Context, batch []domain.CheckSubmission) (domain.SubmitResult, error)
}

// CheckSubmitter turns each ledger summary into check results, so the
// store records when a host starts or stops seeing password connections.
type CheckSubmitter struct {
	poster   CheckPoster
	hostname string
	logger   *slog.Logger
}

func NewCheckSubmitter(poster CheckPoster, hostname string, logger *slog.Logger) *CheckSubmitter {
	return &CheckSubmitter{poster: poster, hostname: hostname, logger: logger}
}

func (s *CheckSubmitter) Name() string { return "checks" }

// Submissions builds the check batch for a report.
func (s *CheckSubmitter) Submissions(report *domain.PassReport) []domain.CheckSubmission {
	batch := make([]domain.CheckSubmission, 0, 2*len(report.Ledgers))
	for _, l := range report.Ledgers {
		batch = append(batch,
			s.check(l, CheckRemotePassword, l.Summary.ProbableRemotePassword()),
			s.check(l, CheckLocalPassword, l.Summary.ProbableLocalPassword()),
		)
	}
	return batch
}

func (s *CheckSubmitter) check(l domain.Ledger, name string, count int) domain.CheckSubmission {
	status := domain.CheckStatusPass
	if count > 0 {
		status = domain.CheckStatusFail
	}
	return domain.CheckSubmission{
		Hostname:  s.hostname,
		OracleSID: l.Host.SID,
		CheckName: name,
		Result:    strconv.Itoa(count),
		Status:    string(status),
	}
}

func (s *CheckSubmitter) Publish(ctx context.Context, report *domain.PassReport) error {
	batch := s.Submissions(report)
	if len(batch) == 0 {
		return nil
	}
	res, err := s.poster.Submit(ctx, batch)
	if err != nil {
		return fmt.Errorf("submit checks: %w", err)
	}
	s.logger.InfoContext(ctx, "checks submitted",
		"received", res.Received, "inserted", res.Inserted, "updated", res.Updated)
	return nil
}
