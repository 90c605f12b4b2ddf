package tests

import (
	"context"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"logbook/internal/domain"
	"logbook/internal/repository"
	"logbook/internal/service"
)

// newTestLogger returns a logger that discards output.
func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// ──────────────────────────────────────────────
// MOCK TRIP REPOSITORY
// ──────────────────────────────────────────────

// MockTripRepository is a mock implementation of TripRepository.
type MockTripRepository struct {
	mu    sync.RWMutex
	trips map[string]*domain.Trip

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32
	DeleteCallCount int32

	// Error injection
	CreateError error
	UpdateError error
	DeleteError error

	snapshot map[string]*domain.Trip
}

// NewMockTripRepository creates a new mock trip repository.
func NewMockTripRepository() *MockTripRepository {
	return &MockTripRepository{
		trips: make(map[string]*domain.Trip),
	}
}

// AddTrip adds a trip to the mock repository.
func (m *MockTripRepository) AddTrip(trip *domain.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = trip
}

func (m *MockTripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *trip
	m.trips[trip.ID] = &copy
	return nil
}

func (m *MockTripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *trip
	return &copy, nil
}

func (m *MockTripRepository) GetAll(ctx context.Context) ([]*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Trip, 0, len(m.trips))
	for _, t := range m.trips {
		copy := *t
		result = append(result, &copy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})
	return result, nil
}

func (m *MockTripRepository) Update(ctx context.Context, trip *domain.Trip) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trips[trip.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *trip
	m.trips[trip.ID] = &copy
	return nil
}

func (m *MockTripRepository) Delete(ctx context.Context, id string) error {
	atomic.AddInt32(&m.DeleteCallCount, 1)
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trips[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.trips, id)
	return nil
}

func (m *MockTripRepository) ListByVehicleBetween(ctx context.Context, vehicleID string, from, to time.Time) ([]*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Trip
	for _, t := range m.trips {
		if t.VehicleID != vehicleID {
			continue
		}
		if t.StartedAt.Before(from) || !t.StartedAt.Before(to) {
			continue
		}
		copy := *t
		result = append(result, &copy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.Before(result[j].StartedAt)
	})
	return result, nil
}

func (m *MockTripRepository) ListBetween(ctx context.Context, from, to time.Time) ([]*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Trip
	for _, t := range m.trips {
		if t.StartedAt.Before(from) || !t.StartedAt.Before(to) {
			continue
		}
		copy := *t
		result = append(result, &copy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.Before(result[j].StartedAt)
	})
	return result, nil
}

// GetTrip returns a trip for test assertions.
func (m *MockTripRepository) GetTrip(id string) *domain.Trip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trips[id]
}

// Count returns the number of stored trips.
func (m *MockTripRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.trips)
}

func (m *MockTripRepository) takeSnapshot() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = make(map[string]*domain.Trip, len(m.trips))
	for id, t := range m.trips {
		copy := *t
		m.snapshot[id] = &copy
	}
}

func (m *MockTripRepository) restoreSnapshot() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips = m.snapshot
}

// ──────────────────────────────────────────────
// MOCK READING REPOSITORY
// ──────────────────────────────────────────────

// MockReadingRepository is a mock implementation of ReadingRepository.
type MockReadingRepository struct {
	mu       sync.RWMutex
	readings map[string]*domain.OdometerReading

	// Counters for verification
	CreateCallCount int32

	// Error injection
	CreateError error

	snapshot map[string]*domain.OdometerReading
}

// NewMockReadingRepository creates a new mock reading repository.
func NewMockReadingRepository() *MockReadingRepository {
	return &MockReadingRepository{
		readings: make(map[string]*domain.OdometerReading),
	}
}

// AddReading adds a reading to the mock repository.
func (m *MockReadingRepository) AddReading(reading *domain.OdometerReading) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readings[reading.ID] = reading
}

func (m *MockReadingRepository) Create(ctx context.Context, reading *domain.OdometerReading) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *reading
	m.readings[reading.ID] = &copy
	return nil
}

func (m *MockReadingRepository) GetByID(ctx context.Context, id string) (*domain.OdometerReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	reading, ok := m.readings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *reading
	return &copy, nil
}

func (m *MockReadingRepository) ListByVehicle(ctx context.Context, vehicleID string) ([]*domain.OdometerReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.OdometerReading
	for _, r := range m.readings {
		if r.VehicleID != vehicleID {
			continue
		}
		copy := *r
		result = append(result, &copy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].RecordedAt.Before(result[j].RecordedAt)
	})
	return result, nil
}

func (m *MockReadingRepository) ListByVehicleBetween(ctx context.Context, vehicleID string, from, to time.Time) ([]*domain.OdometerReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.OdometerReading
	for _, r := range m.readings {
		if r.VehicleID != vehicleID {
			continue
		}
		if r.RecordedAt.Before(from) || !r.RecordedAt.Before(to) {
			continue
		}
		copy := *r
		result = append(result, &copy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].RecordedAt.Before(result[j].RecordedAt)
	})
	return result, nil
}

// GetReading returns a reading for test assertions.
func (m *MockReadingRepository) GetReading(id string) *domain.OdometerReading {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.readings[id]
}

func (m *MockReadingRepository) takeSnapshot() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = make(map[string]*domain.OdometerReading, len(m.readings))
	for id, r := range m.readings {
		copy := *r
		m.snapshot[id] = &copy
	}
}

func (m *MockReadingRepository) restoreSnapshot() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readings = m.snapshot
}

// ──────────────────────────────────────────────
// MOCK VEHICLE REPOSITORY
// ──────────────────────────────────────────────

// MockVehicleRepository is a mock implementation of VehicleRepository.
type MockVehicleRepository struct {
	mu       sync.RWMutex
	vehicles map[string]*domain.Vehicle

	// Counters for verification
	CreateCallCount int32

	// Error injection
	CreateError error
}

// NewMockVehicleRepository creates a new mock vehicle repository.
func NewMockVehicleRepository() *MockVehicleRepository {
	return &MockVehicleRepository{
		vehicles: make(map[string]*domain.Vehicle),
	}
}

// AddVehicle adds a vehicle to the mock repository.
func (m *MockVehicleRepository) AddVehicle(vehicle *domain.Vehicle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vehicles[vehicle.ID] = vehicle
}

func (m *MockVehicleRepository) Create(ctx context.Context, vehicle *domain.Vehicle) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *vehicle
	m.vehicles[vehicle.ID] = &copy
	return nil
}

func (m *MockVehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	vehicle, ok := m.vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *vehicle
	return &copy, nil
}

func (m *MockVehicleRepository) GetAll(ctx context.Context) ([]*domain.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Vehicle, 0, len(m.vehicles))
	for _, v := range m.vehicles {
		copy := *v
		result = append(result, &copy)
	}
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK AUDIT REPOSITORY
// ──────────────────────────────────────────────

// MockAuditRepository is a mock implementation of AuditRepository.
type MockAuditRepository struct {
	mu      sync.RWMutex
	entries []*domain.AuditEntry
	nextID  int64

	// Counters for verification
	AppendCallCount int32

	// Error injection
	AppendError error

	snapshot []*domain.AuditEntry
}

// NewMockAuditRepository creates a new mock audit repository.
func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

func (m *MockAuditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	atomic.AddInt32(&m.AppendCallCount, 1)
	if m.AppendError != nil {
		return m.AppendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	copy := *entry
	copy.ID = m.nextID
	entry.ID = m.nextID
	m.entries = append(m.entries, &copy)
	return nil
}

func (m *MockAuditRepository) ListBySubject(ctx context.Context, subjectType, subjectID string) ([]*domain.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.AuditEntry
	for _, e := range m.entries {
		if e.SubjectType == subjectType && e.SubjectID == subjectID {
			copy := *e
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockAuditRepository) ListRecent(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.AuditEntry
	for i := len(m.entries) - 1; i >= 0 && len(result) < limit; i-- {
		copy := *m.entries[i]
		result = append(result, &copy)
	}
	return result, nil
}

// Entries returns all appended entries for test assertions.
func (m *MockAuditRepository) Entries() []*domain.AuditEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.AuditEntry, len(m.entries))
	for i, e := range m.entries {
		copy := *e
		result[i] = &copy
	}
	return result
}

func (m *MockAuditRepository) takeSnapshot() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = append([]*domain.AuditEntry(nil), m.entries...)
}

func (m *MockAuditRepository) restoreSnapshot() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = m.snapshot
}

// ──────────────────────────────────────────────
// MOCK PERIOD LOCK REPOSITORY
// ──────────────────────────────────────────────

// MockPeriodLockRepository is a mock implementation of PeriodLockRepository.
type MockPeriodLockRepository struct {
	mu    sync.RWMutex
	locks map[string]*domain.PeriodLock

	// Counters for verification
	CreateCallCount int32

	// Error injection
	CreateError error

	snapshot map[string]*domain.PeriodLock
}

// NewMockPeriodLockRepository creates a new mock period lock repository.
func NewMockPeriodLockRepository() *MockPeriodLockRepository {
	return &MockPeriodLockRepository{
		locks: make(map[string]*domain.PeriodLock),
	}
}

// AddLock adds a lock to the mock repository.
func (m *MockPeriodLockRepository) AddLock(lock *domain.PeriodLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[lock.Scope+"/"+lock.PeriodKey] = lock
}

func (m *MockPeriodLockRepository) Create(ctx context.Context, lock *domain.PeriodLock) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *lock
	m.locks[lock.Scope+"/"+lock.PeriodKey] = &copy
	return nil
}

func (m *MockPeriodLockRepository) Get(ctx context.Context, scope, periodKey string) (*domain.PeriodLock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lock, ok := m.locks[scope+"/"+periodKey]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *lock
	return &copy, nil
}

func (m *MockPeriodLockRepository) FindCovering(ctx context.Context, vehicleID string, t time.Time) (*domain.PeriodLock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, lock := range m.locks {
		if lock.State != domain.LockStateLocked {
			continue
		}
		if lock.Scope != domain.ScopeOrganization && lock.Scope != vehicleID {
			continue
		}
		if t.Before(lock.StartsAt) || !t.Before(lock.EndsBefore) {
			continue
		}
		copy := *lock
		return &copy, nil
	}
	return nil, nil
}

// Count returns the number of stored locks.
func (m *MockPeriodLockRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.locks)
}

func (m *MockPeriodLockRepository) takeSnapshot() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = make(map[string]*domain.PeriodLock, len(m.locks))
	for k, l := range m.locks {
		copy := *l
		m.snapshot[k] = &copy
	}
}

func (m *MockPeriodLockRepository) restoreSnapshot() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks = m.snapshot
}

// ──────────────────────────────────────────────
// MOCK REPORT REPOSITORY
// ──────────────────────────────────────────────

// MockReportRepository is a mock implementation of ReportRepository.
type MockReportRepository struct {
	mu      sync.RWMutex
	reports map[string]*domain.VatReport

	// Counters for verification
	CreateCallCount int32

	// Error injection
	CreateError error

	snapshot map[string]*domain.VatReport
}

// NewMockReportRepository creates a new mock report repository.
func NewMockReportRepository() *MockReportRepository {
	return &MockReportRepository{
		reports: make(map[string]*domain.VatReport),
	}
}

func (m *MockReportRepository) Create(ctx context.Context, report *domain.VatReport) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *report
	m.reports[report.ID] = &copy
	return nil
}

func (m *MockReportRepository) GetByID(ctx context.Context, id string) (*domain.VatReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	report, ok := m.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *report
	return &copy, nil
}

func (m *MockReportRepository) GetByScopePeriod(ctx context.Context, scope, periodKey string) (*domain.VatReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.reports {
		if r.Scope == scope && r.PeriodKey == periodKey {
			copy := *r
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockReportRepository) takeSnapshot() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = make(map[string]*domain.VatReport, len(m.reports))
	for id, r := range m.reports {
		copy := *r
		m.snapshot[id] = &copy
	}
}

func (m *MockReportRepository) restoreSnapshot() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = m.snapshot
}

// ──────────────────────────────────────────────
// MOCK TX RUNNER
// ──────────────────────────────────────────────

// MockTxRunner is a mock implementation of TxRunner backed by the in-memory
// repositories. State is snapshotted before fn runs and restored when fn
// fails, so atomicity can be asserted the way the real transaction provides
// it.
type MockTxRunner struct {
	Trips       *MockTripRepository
	Readings    *MockReadingRepository
	Audit       *MockAuditRepository
	PeriodLocks *MockPeriodLockRepository
	Reports     *MockReportRepository

	txMu sync.Mutex

	// Counters for verification
	WithinTxCallCount int32

	// Error injection
	WithinTxError error
}

// NewMockTxRunner creates a mock tx runner over the given repositories.
func NewMockTxRunner(
	trips *MockTripRepository,
	readings *MockReadingRepository,
	audit *MockAuditRepository,
	periodLocks *MockPeriodLockRepository,
	reports *MockReportRepository,
) *MockTxRunner {
	return &MockTxRunner{
		Trips:       trips,
		Readings:    readings,
		Audit:       audit,
		PeriodLocks: periodLocks,
		Reports:     reports,
	}
}

func (m *MockTxRunner) WithinTx(ctx context.Context, fn func(repository.TxRepos) error) error {
	atomic.AddInt32(&m.WithinTxCallCount, 1)
	if m.WithinTxError != nil {
		return m.WithinTxError
	}

	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.Trips.takeSnapshot()
	m.Readings.takeSnapshot()
	m.Audit.takeSnapshot()
	m.PeriodLocks.takeSnapshot()
	m.Reports.takeSnapshot()

	err := fn(repository.TxRepos{
		Trips:       m.Trips,
		Readings:    m.Readings,
		Audit:       m.Audit,
		PeriodLocks: m.PeriodLocks,
		Reports:     m.Reports,
	})
	if err != nil {
		m.Trips.restoreSnapshot()
		m.Readings.restoreSnapshot()
		m.Audit.restoreSnapshot()
		m.PeriodLocks.restoreSnapshot()
		m.Reports.restoreSnapshot()
		return err
	}
	return nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]bool

	// Counters for verification
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error
	// FailAcquire makes every acquisition report the lock as already held.
	FailAcquire bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]bool),
	}
}

func (m *MockLockStore) AcquireScopeLock(ctx context.Context, scope, periodKey string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.FailAcquire {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := scope + ":" + periodKey
	if m.locks[key] {
		return false, nil
	}
	m.locks[key] = true
	return true, nil
}

func (m *MockLockStore) ReleaseScopeLock(ctx context.Context, scope, periodKey string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, scope+":"+periodKey)
	return nil
}

// ──────────────────────────────────────────────
// MOCK EXTERNAL COLLABORATORS
// ──────────────────────────────────────────────

// MockRecognizer is a configurable mock of the odometer OCR collaborator.
type MockRecognizer struct {
	Result *service.OCRResult

	// Counters for verification
	RecognizeCallCount int32

	// Error injection
	RecognizeError error
	// Hang makes Recognize block until the context expires.
	Hang bool
}

func (m *MockRecognizer) Recognize(ctx context.Context, image []byte) (*service.OCRResult, error) {
	atomic.AddInt32(&m.RecognizeCallCount, 1)
	if m.Hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.RecognizeError != nil {
		return nil, m.RecognizeError
	}
	return m.Result, nil
}

// MockExporter is a configurable mock of the report renderer collaborator.
type MockExporter struct {
	ArtifactRef string

	// Counters for verification
	ExportCallCount int32

	// Error injection
	ExportError error
	// Hang makes Export block until the context expires.
	Hang bool
}

func (m *MockExporter) Export(ctx context.Context, report *domain.VatReport) (string, error) {
	atomic.AddInt32(&m.ExportCallCount, 1)
	if m.Hang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if m.ExportError != nil {
		return "", m.ExportError
	}
	return m.ArtifactRef, nil
}
