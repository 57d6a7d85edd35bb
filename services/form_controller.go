package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ciclus/rd-dashboard/models"
	"github.com/ciclus/rd-dashboard/utils"
)

type FormState string

const (
	FormEmpty                FormState = "EMPTY"
	FormEditing              FormState = "EDITING"
	FormSearchingAddress     FormState = "SEARCHING_ADDRESS"
	FormReviewingSuggestions FormState = "REVIEWING_SUGGESTIONS"
	FormValidating           FormState = "VALIDATING"
	FormSubmitting           FormState = "SUBMITTING"
	FormSaved                FormState = "SAVED"
	FormFailed               FormState = "FAILED"
)

// Address fields that accept a forward search.
const (
	FieldStreet       = "street"
	FieldNeighborhood = "neighborhood"
)

const (
	SearchDebounce  = 600 * time.Millisecond
	LocateTimeout   = 15 * time.Second
	ReverseTimeout  = 10 * time.Second
	NearbyTimeout   = 25 * time.Second
	DefaultGPSLabel = "Coordenadas capturadas via GPS"
)

// Locator yields the device position.
type Locator interface {
	Locate(ctx context.Context) (models.GeoLocation, error)
}

// FixLocator is a Locator over a position already known to the caller.
type FixLocator models.GeoLocation

func (f FixLocator) Locate(context.Context) (models.GeoLocation, error) {
	return models.GeoLocation(f), nil
}

type ReportStore interface {
	Get(ctx context.Context, id string) (models.Report, error)
	Upsert(ctx context.Context, r *models.Report) error
}

type UserLookup interface {
	Get(ctx context.Context, id string) (models.User, error)
}

// Draft is the in-progress report plus the state shown while editing it.
type Draft struct {
	ExistingID  string              `json:"existingId,omitempty"`
	State       FormState           `json:"state"`
	Locating    bool                `json:"locating"`
	Report      models.Report       `json:"report"`
	SearchField string              `json:"searchField,omitempty"`
	SearchQuery string              `json:"searchQuery,omitempty"`
	Suggestions []AddressSuggestion `json:"suggestions"`
	Nearby      []string            `json:"nearbyStreets"`
	Corners     []string            `json:"perimeterStreets"`
	LastError   string              `json:"lastError,omitempty"`
}

// DraftPatch carries the user-editable fields. Nil fields are left alone.
type DraftPatch struct {
	Date            *time.Time                 `json:"date"`
	SupervisorID    *string                    `json:"supervisorId"`
	Base            *models.Base               `json:"base"`
	Shift           *models.Shift              `json:"shift"`
	Team            *string                    `json:"team"`
	ServiceCategory *models.ServiceCategory    `json:"serviceCategory"`
	Street          *string                    `json:"street"`
	Neighborhood    *string                    `json:"neighborhood"`
	Perimeter       *string                    `json:"perimeter"`
	Metrics         *models.ProductionMetrics  `json:"metrics"`
	TeamAttendance  *[]models.AttendanceRecord `json:"teamAttendance"`
	Photos          *models.ReportPhotos       `json:"photos"`
	Observations    *string                    `json:"observations"`
}

// FormController drives one draft from empty to saved. Location capture,
// address search and nearby lookups run in the background; every method
// is safe for concurrent use.
type FormController struct {
	mu    sync.Mutex
	user  models.User
	draft Draft

	geo      Geocoder
	reports  ReportStore
	users    UserLookup
	debounce *Debouncer
	now      func() time.Time
}

func NewFormController(user models.User, geo Geocoder, reports ReportStore, users UserLookup) *FormController {
	fc := &FormController{
		user:     user,
		geo:      geo,
		reports:  reports,
		users:    users,
		debounce: NewDebouncer(SearchDebounce),
		now:      time.Now,
	}
	fc.reset()
	return fc
}

func (fc *FormController) reset() {
	fc.draft = Draft{
		State: FormEmpty,
		Report: models.Report{
			Base:            models.BaseNorte,
			Shift:           models.ShiftDiurno,
			ServiceCategory: models.CategoryMutirao,
			Segments:        []models.TrackSegment{},
			TeamAttendance:  []models.AttendanceRecord{},
		},
		Suggestions: []AddressSuggestion{},
		Nearby:      []string{},
		Corners:     []string{},
	}
	if fc.user.Role == models.RoleSupervisor {
		fc.draft.Report.SupervisorID = fc.user.ID
	}
}

// Snapshot returns a copy of the draft.
func (fc *FormController) Snapshot() Draft {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	d := fc.draft
	d.Suggestions = append([]AddressSuggestion{}, d.Suggestions...)
	d.Nearby = append([]string{}, d.Nearby...)
	d.Corners = append([]string{}, d.Corners...)
	d.Report.TeamAttendance = append([]models.AttendanceRecord{}, d.Report.TeamAttendance...)
	return d
}

// StartNew prepares a fresh draft. The roster is the team of the current
// user, or every employee when that team is empty, all marked present.
func (fc *FormController) StartNew(employees []models.Employee) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	fc.reset()
	fc.draft.Report.Date = fc.now()
	fc.draft.Report.Team = fc.user.Team

	team := make([]models.Employee, 0)
	for _, e := range employees {
		if e.SupervisorID == fc.user.ID {
			team = append(team, e)
		}
	}
	if len(team) == 0 {
		team = employees
	}
	for _, e := range team {
		fc.draft.Report.TeamAttendance = append(fc.draft.Report.TeamAttendance, e.Snapshot(true))
	}
	fc.draft.State = FormEditing
}

// StartEdit loads an existing report for correction.
func (fc *FormController) StartEdit(existing models.Report) error {
	if !CanEdit(existing, models.Actor{ID: fc.user.ID, Role: fc.user.Role}) {
		return fmt.Errorf("edit report %s: %w", existing.ID, utils.ErrForbidden)
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()

	fc.reset()
	fc.draft.ExistingID = existing.ID
	fc.draft.Report = existing
	if fc.draft.Report.TeamAttendance == nil {
		fc.draft.Report.TeamAttendance = []models.AttendanceRecord{}
	}
	if fc.user.Role == models.RoleSupervisor && existing.SupervisorID == "" {
		fc.draft.Report.SupervisorID = fc.user.ID
	}
	fc.draft.State = FormEditing
	return nil
}

// Apply merges a patch into the draft.
func (fc *FormController) Apply(p DraftPatch) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	r := &fc.draft.Report
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.SupervisorID != nil {
		r.SupervisorID = *p.SupervisorID
	}
	if p.Base != nil {
		r.Base = *p.Base
	}
	if p.Shift != nil {
		r.Shift = *p.Shift
	}
	if p.Team != nil {
		r.Team = *p.Team
	}
	if p.ServiceCategory != nil {
		r.ServiceCategory = *p.ServiceCategory
	}
	if p.Street != nil {
		r.Street = *p.Street
	}
	if p.Neighborhood != nil {
		r.Neighborhood = *p.Neighborhood
	}
	if p.Perimeter != nil {
		r.Perimeter = *p.Perimeter
	}
	if p.Metrics != nil {
		r.Metrics = *p.Metrics
	}
	if p.TeamAttendance != nil {
		r.TeamAttendance = append([]models.AttendanceRecord{}, (*p.TeamAttendance)...)
	}
	if p.Photos != nil {
		r.Photos = *p.Photos
	}
	if p.Observations != nil {
		r.Observations = *p.Observations
	}
	fc.editing()
}

// SetPhoto attaches one photo URL by kind (initial, progress, final or signature).
func (fc *FormController) SetPhoto(kind, url string) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	p := &fc.draft.Report.Photos
	switch kind {
	case "initial":
		p.Initial = url
	case "progress":
		p.Progress = url
	case "final":
		p.Final = url
	case "signature":
		p.Signature = url
	default:
		return utils.NewValidationError("kind", fmt.Sprintf("tipo de foto desconhecido: %q", kind))
	}
	fc.editing()
	return nil
}

func (fc *FormController) editing() {
	switch fc.draft.State {
	case FormSubmitting, FormSearchingAddress:
	default:
		fc.draft.State = FormEditing
	}
}

// CaptureLocation runs the GPS fix and reverse geocoding in the background
// and returns at once. Failures leave the location unset. The returned
// channel closes when the capture finishes.
func (fc *FormController) CaptureLocation(ctx context.Context, loc Locator) <-chan struct{} {
	done := make(chan struct{})

	fc.mu.Lock()
	fc.draft.Locating = true
	if fc.draft.State == FormEmpty {
		fc.draft.State = FormEditing
	}
	fc.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			fc.mu.Lock()
			fc.draft.Locating = false
			fc.mu.Unlock()
		}()

		lctx, cancel := context.WithTimeout(ctx, LocateTimeout)
		fix, err := loc.Locate(lctx)
		cancel()
		if err != nil {
			utils.InfoLogger.Warnf("gps capture failed: %v", err)
			return
		}

		var addr *ReverseAddress
		if fc.geo != nil {
			rctx, cancel := context.WithTimeout(ctx, ReverseTimeout)
			addr, err = fc.geo.Reverse(rctx, fix.Lat, fix.Lng)
			cancel()
			if err != nil {
				utils.InfoLogger.Warnf("reverse geocode failed: %v", err)
				addr = nil
			}
		}

		fix.AddressFromGPS = DefaultGPSLabel
		if addr != nil && addr.Full != "" {
			fix.AddressFromGPS = addr.Full
		}

		fc.mu.Lock()
		fc.draft.Report.Location = &fix
		current := ""
		if addr != nil {
			if strings.TrimSpace(fc.draft.Report.Street) == "" {
				fc.draft.Report.Street = addr.Street
			}
			if strings.TrimSpace(fc.draft.Report.Neighborhood) == "" {
				fc.draft.Report.Neighborhood = addr.Neighborhood
			}
			current = addr.Street
		}
		fc.mu.Unlock()

		if addr != nil {
			fc.loadNearby(ctx, fix.Lat, fix.Lng, current)
		}
	}()
	return done
}

func (fc *FormController) loadNearby(ctx context.Context, lat, lng float64, current string) {
	if fc.geo == nil {
		return
	}
	nctx, cancel := context.WithTimeout(ctx, NearbyTimeout)
	defer cancel()

	names, err := fc.geo.NearbyStreets(nctx, lat, lng, current)
	if err != nil {
		utils.InfoLogger.Warnf("nearby streets lookup failed: %v", err)
		return
	}
	fc.mu.Lock()
	fc.draft.Nearby = names
	fc.mu.Unlock()
}

// SearchAddress records typed text for street or neighborhood and schedules
// a debounced forward search. Only the response to the latest text is kept.
func (fc *FormController) SearchAddress(ctx context.Context, field, text string) error {
	if field != FieldStreet && field != FieldNeighborhood {
		return utils.NewValidationError("field", fmt.Sprintf("campo de busca desconhecido: %q", field))
	}

	fc.mu.Lock()
	if field == FieldStreet {
		fc.draft.Report.Street = text
	} else {
		fc.draft.Report.Neighborhood = text
	}
	fc.draft.SearchField = field
	fc.draft.SearchQuery = text
	fc.editing()
	fc.mu.Unlock()

	// the request context ends before the debounce window does
	bg := context.WithoutCancel(ctx)
	fc.debounce.Schedule(func(gen uint64) {
		fc.runSearch(bg, gen, text)
	})
	return nil
}

func (fc *FormController) runSearch(ctx context.Context, gen uint64, query string) {
	if len([]rune(strings.TrimSpace(query))) < MinSearchLength || fc.geo == nil {
		fc.mu.Lock()
		if fc.debounce.IsLatest(gen) {
			fc.draft.Suggestions = []AddressSuggestion{}
			fc.draft.State = FormEditing
		}
		fc.mu.Unlock()
		return
	}

	fc.mu.Lock()
	if !fc.debounce.IsLatest(gen) {
		fc.mu.Unlock()
		return
	}
	fc.draft.State = FormSearchingAddress
	fc.mu.Unlock()

	found, err := fc.geo.Search(ctx, query)

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if !fc.debounce.IsLatest(gen) {
		return
	}
	if err != nil {
		utils.InfoLogger.Warnf("address search failed: %v", err)
		found = nil
	}
	if found == nil {
		found = []AddressSuggestion{}
	}
	fc.draft.Suggestions = found
	if len(found) > 0 {
		fc.draft.State = FormReviewingSuggestions
	} else {
		fc.draft.State = FormEditing
	}
}

// SelectSuggestion applies one of the current suggestions. A street pick
// also moves the location to the suggestion and refreshes nearby streets.
func (fc *FormController) SelectSuggestion(ctx context.Context, index int) error {
	fc.mu.Lock()
	if index < 0 || index >= len(fc.draft.Suggestions) {
		fc.mu.Unlock()
		return utils.NewValidationError("index", "sugestão inexistente")
	}
	s := fc.draft.Suggestions[index]
	field := fc.draft.SearchField
	fc.draft.Suggestions = []AddressSuggestion{}
	fc.draft.State = FormEditing

	if field == FieldNeighborhood {
		fc.draft.Report.Neighborhood = firstOf(s.Neighborhood, headOf(s.DisplayName))
		fc.mu.Unlock()
		return nil
	}

	street := firstOf(s.Street, headOf(s.DisplayName))
	fc.draft.Report.Street = street
	if s.Neighborhood != "" {
		fc.draft.Report.Neighborhood = s.Neighborhood
	}
	hasCoords := s.Lat != 0 || s.Lng != 0
	if hasCoords {
		fc.draft.Report.Location = &models.GeoLocation{
			Lat:            s.Lat,
			Lng:            s.Lng,
			Timestamp:      fc.now().UnixMilli(),
			AddressFromGPS: s.DisplayName,
		}
	}
	fc.mu.Unlock()

	if hasCoords {
		go fc.loadNearby(context.WithoutCancel(ctx), s.Lat, s.Lng, street)
	}
	return nil
}

// CorrectStreet replaces the street with a nearby name and refreshes the
// nearby list around the current location.
func (fc *FormController) CorrectStreet(ctx context.Context, street string) {
	fc.mu.Lock()
	fc.draft.Report.Street = street
	loc := fc.draft.Report.Location
	fc.editing()
	fc.mu.Unlock()

	if loc != nil {
		fc.loadNearby(ctx, loc.Lat, loc.Lng, street)
	}
}

// TogglePerimeterStreet adds or removes a street from the perimeter
// selection and returns the resulting perimeter text.
func (fc *FormController) TogglePerimeterStreet(street string) string {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	fc.draft.Corners = TogglePerimeter(fc.draft.Corners, street)
	fc.draft.Report.Perimeter = PerimeterText(fc.draft.Corners)
	fc.editing()
	return fc.draft.Report.Perimeter
}

// TogglePerimeter toggles street in selected. Picking a third street starts
// a new selection with only that street.
func TogglePerimeter(selected []string, street string) []string {
	out := make([]string, 0, 2)
	removed := false
	for _, s := range selected {
		if s == street {
			removed = true
			continue
		}
		out = append(out, s)
	}
	if removed {
		return out
	}
	out = append(out, street)
	if len(out) > 2 {
		return []string{street}
	}
	return out
}

func PerimeterText(selected []string) string {
	switch len(selected) {
	case 0:
		return ""
	case 1:
		return "Esquina com " + selected[0]
	default:
		return "Entre " + selected[0] + " e " + selected[1]
	}
}

// ValidateReport checks a report before submission. The first failing rule
// wins: supervisor, then production or observations, then photos.
func ValidateReport(r models.Report) error {
	if strings.TrimSpace(r.SupervisorID) == "" {
		return utils.NewValidationError("supervisorId", "Erro: Supervisor Responsável não identificado.")
	}
	if r.Metrics.Total() <= 0 && strings.TrimSpace(r.Observations) == "" {
		return utils.NewValidationError("metrics", "Insira a quantidade produzida ou uma observação.")
	}
	if !r.Photos.Complete() {
		return utils.NewValidationError("photos", "Por favor, anexe as três fotos obrigatórias (Inicial, Progresso e Final).")
	}
	return nil
}

// Submit validates and saves the draft. Validation failures keep the draft
// in editing; storage failures move it to FAILED with the draft intact so
// the same Submit can be retried.
func (fc *FormController) Submit(ctx context.Context) (models.Report, error) {
	fc.mu.Lock()
	if fc.draft.State == FormSubmitting {
		fc.mu.Unlock()
		return models.Report{}, utils.NewValidationError("state", "envio já em andamento")
	}
	fc.draft.State = FormValidating
	r := fc.draft.Report
	existingID := fc.draft.ExistingID
	ApplySubmitterDefaults(&r, fc.user)
	if err := ValidateReport(r); err != nil {
		fc.draft.State = FormEditing
		fc.draft.LastError = err.Error()
		fc.mu.Unlock()
		return models.Report{}, err
	}
	fc.draft.State = FormSubmitting
	fc.draft.LastError = ""
	fc.mu.Unlock()

	saved, err := fc.save(ctx, existingID, r)

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if err != nil {
		fc.draft.State = FormFailed
		fc.draft.LastError = err.Error()
		return models.Report{}, err
	}
	fc.reset()
	fc.draft.State = FormSaved
	return saved, nil
}

func (fc *FormController) save(ctx context.Context, existingID string, r models.Report) (models.Report, error) {
	return SaveSubmission(ctx, fc.user, existingID, r, fc.reports, fc.users, fc.now())
}

// Close stops any pending search.
func (fc *FormController) Close() {
	fc.debounce.Stop()
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func headOf(display string) string {
	head, _, _ := strings.Cut(display, ",")
	return strings.TrimSpace(head)
}

// DraftStore keeps one form per user.
type DraftStore struct {
	mu      sync.Mutex
	forms   map[string]*FormController
	factory func(models.User) *FormController
}

func NewDraftStore(factory func(models.User) *FormController) *DraftStore {
	return &DraftStore{
		forms:   make(map[string]*FormController),
		factory: factory,
	}
}

// Open returns the user's form, creating an empty one when absent.
func (s *DraftStore) Open(user models.User) *FormController {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fc, ok := s.forms[user.ID]; ok {
		return fc
	}
	fc := s.factory(user)
	s.forms[user.ID] = fc
	return fc
}

func (s *DraftStore) Get(userID string) (*FormController, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fc, ok := s.forms[userID]
	return fc, ok
}

func (s *DraftStore) Discard(userID string) {
	s.mu.Lock()
	fc, ok := s.forms[userID]
	delete(s.forms, userID)
	s.mu.Unlock()

	if ok {
		fc.Close()
	}
}
