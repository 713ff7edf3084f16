package ingress

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/privascan/internal/common"
	"github.com/ternarybob/privascan/internal/models"
)

type fakeResolver struct {
	ip  net.IP
	err error
}

func (f *fakeResolver) Resolve(ctx context.Context, hostname string) (net.IP, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ip, nil
}

type fakeStore struct {
	recent  *models.ScanJob
	active  *models.ScanJob
	created *models.ScanJob

	createErr    error
	markedFailed string
}

func (f *fakeStore) Create(ctx context.Context, job *models.ScanJob) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = job
	return nil
}

func (f *fakeStore) FindRecentSuccess(ctx context.Context, targetURL string, since time.Time) (*models.ScanJob, error) {
	return f.recent, nil
}

func (f *fakeStore) FindActive(ctx context.Context, targetURL string) (*models.ScanJob, error) {
	return f.active, nil
}

func (f *fakeStore) MarkFailed(ctx context.Context, id, errorMessage string) error {
	f.markedFailed = id
	return nil
}

type fakeQueue struct {
	enqueued []models.QueuePayload
	err      error
}

func (f *fakeQueue) Enqueue(ctx context.Context, payload models.QueuePayload) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, payload)
	return nil
}

type fakeLocker struct {
	acquired bool
	released []string
}

func (f *fakeLocker) Acquire(ctx context.Context, key string) (bool, error) {
	return f.acquired, nil
}

func (f *fakeLocker) Release(ctx context.Context, key string) error {
	f.released = append(f.released, key)
	return nil
}

func newTestService(store *fakeStore, queue *fakeQueue, locker *fakeLocker) *Service {
	return &Service{
		store:    store,
		queue:    queue,
		locker:   locker,
		resolver: &fakeResolver{ip: net.ParseIP("93.184.216.34")},
		window:   10 * time.Minute,
		logger:   arbor.NewLogger(),
	}
}

func TestAdmit_EnqueuesNewJob(t *testing.T) {
	store := &fakeStore{}
	queue := &fakeQueue{}
	locker := &fakeLocker{acquired: true}
	svc := newTestService(store, queue, locker)

	admission, err := svc.Admit(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if admission.Cached {
		t.Error("fresh admission reported cached")
	}
	if store.created == nil {
		t.Fatal("no job created")
	}
	if store.created.TargetURL != "https://example.com" {
		t.Errorf("job URL = %q, want canonical https form", store.created.TargetURL)
	}
	if len(queue.enqueued) != 1 {
		t.Fatalf("enqueued %d payloads, want 1", len(queue.enqueued))
	}
	if queue.enqueued[0].JobID != store.created.ID {
		t.Error("queue job id does not match store job id")
	}
}

func TestAdmit_RecentSuccessServedFromCache(t *testing.T) {
	completed := time.Now().Add(-time.Minute)
	store := &fakeStore{recent: &models.ScanJob{
		ID:          "job-1",
		TargetURL:   "https://example.com",
		Status:      models.JobStatusSuccess,
		CompletedAt: &completed,
	}}
	queue := &fakeQueue{}
	locker := &fakeLocker{acquired: true}
	svc := newTestService(store, queue, locker)

	admission, err := svc.Admit(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if !admission.Cached {
		t.Error("recent success not served as cached")
	}
	if admission.Job.ID != "job-1" {
		t.Errorf("cached job id = %q, want job-1", admission.Job.ID)
	}
	if len(queue.enqueued) != 0 {
		t.Error("cache hit still enqueued a job")
	}
}

func TestAdmit_LostRaceCoalescesOntoActiveJob(t *testing.T) {
	store := &fakeStore{active: &models.ScanJob{ID: "job-2", Status: models.JobStatusRunning}}
	queue := &fakeQueue{}
	locker := &fakeLocker{acquired: false}
	svc := newTestService(store, queue, locker)

	admission, err := svc.Admit(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if admission.Job.ID != "job-2" {
		t.Errorf("coalesced onto %q, want job-2", admission.Job.ID)
	}
	if len(queue.enqueued) != 0 {
		t.Error("coalesced admission still enqueued a job")
	}
	if store.created != nil {
		t.Error("coalesced admission still created a job")
	}
}

func TestAdmit_LockHeldButNoJobProceeds(t *testing.T) {
	// Holder crashed between acquire and create; the submission must not be
	// orphaned.
	store := &fakeStore{}
	queue := &fakeQueue{}
	locker := &fakeLocker{acquired: false}
	svc := newTestService(store, queue, locker)

	admission, err := svc.Admit(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if admission.Job == nil || len(queue.enqueued) != 1 {
		t.Error("submission was orphaned when lock holder left no job")
	}
}

func TestAdmit_EnqueueFailureMarksJobFailedAndReleasesKey(t *testing.T) {
	store := &fakeStore{}
	queue := &fakeQueue{err: errors.New("redis down")}
	locker := &fakeLocker{acquired: true}
	svc := newTestService(store, queue, locker)

	_, err := svc.Admit(context.Background(), "https://example.com")
	if err == nil {
		t.Fatal("Admit succeeded despite enqueue failure")
	}
	scanErr, ok := common.AsScanError(err)
	if !ok || scanErr.Code != common.ErrEnqueueFailed {
		t.Errorf("error = %v, want ENQUEUE_FAILED", err)
	}
	if store.markedFailed != store.created.ID {
		t.Error("job not marked failed after enqueue failure")
	}
	if len(locker.released) != 1 {
		t.Error("in-flight key not released after enqueue failure")
	}
}

func TestAdmit_SSRFBlockedBeforeAnyWrite(t *testing.T) {
	store := &fakeStore{}
	queue := &fakeQueue{}
	locker := &fakeLocker{acquired: true}
	svc := newTestService(store, queue, locker)
	svc.resolver = &fakeResolver{ip: net.ParseIP("10.0.0.5")}

	_, err := svc.Admit(context.Background(), "https://rebind.example.com")
	if err == nil {
		t.Fatal("Admit allowed a privately-resolving hostname")
	}
	scanErr, _ := common.AsScanError(err)
	if scanErr.Code != common.ErrSSRFPrivateIP {
		t.Errorf("code = %s, want SSRF_PRIVATE_IP", scanErr.Code)
	}
	if store.created != nil || len(queue.enqueued) != 0 {
		t.Error("SSRF rejection still touched store or queue")
	}
}

func TestAdmit_ReservedHostnameBlockedBeforeDNS(t *testing.T) {
	// Reserved names rarely resolve; the rejection must still be the SSRF
	// notice, not a DNS failure.
	store := &fakeStore{}
	svc := newTestService(store, &fakeQueue{}, &fakeLocker{acquired: true})
	svc.resolver = &fakeResolver{err: common.NewScanError(common.ErrDNSFailed, "NXDOMAIN")}

	_, err := svc.Admit(context.Background(), "https://metadata.google.internal")
	if err == nil {
		t.Fatal("Admit allowed a reserved hostname")
	}
	scanErr, _ := common.AsScanError(err)
	if scanErr.Code != common.ErrSSRFBlockedHostname {
		t.Errorf("code = %s, want SSRF_BLOCKED_HOSTNAME", scanErr.Code)
	}

	_, err = svc.Admit(context.Background(), "https://db.internal")
	scanErr, _ = common.AsScanError(err)
	if scanErr == nil || scanErr.Code != common.ErrSSRFBlockedPattern {
		t.Errorf("error = %v, want SSRF_BLOCKED_PATTERN before DNS", err)
	}
}

func TestAdmit_DNSFailureSurfaced(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, &fakeQueue{}, &fakeLocker{acquired: true})
	svc.resolver = &fakeResolver{err: common.NewScanError(common.ErrDNSFailed, "NXDOMAIN")}

	_, err := svc.Admit(context.Background(), "example.invalid")
	if err == nil {
		t.Fatal("Admit succeeded despite DNS failure")
	}
	scanErr, _ := common.AsScanError(err)
	if scanErr.Code != common.ErrDNSFailed {
		t.Errorf("code = %s, want DNS_FAILED", scanErr.Code)
	}
}
