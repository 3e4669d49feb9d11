package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/patitas/patitas-backend/internal/animals"
	"github.com/patitas/patitas-backend/internal/chat"
	"github.com/patitas/patitas-backend/internal/db/interfaces"
	"github.com/patitas/patitas-backend/internal/feed"
	"github.com/patitas/patitas-backend/internal/geo"
	"github.com/patitas/patitas-backend/internal/media"
	"github.com/patitas/patitas-backend/internal/moderation"
	"github.com/patitas/patitas-backend/internal/session"
	"github.com/patitas/patitas-backend/internal/stories"
	"github.com/patitas/patitas-backend/internal/wizard"
)

// maxSubmitBytes bounds the multipart publication body; five images at
// a few MB each fit comfortably.
const maxSubmitBytes = 32 << 20

// Server bundles the services the handlers dispatch to.
type Server struct {
	animals    *animals.Service
	chat       *chat.Service
	moderation *moderation.Service
	stories    *stories.Service
	submitter  *wizard.Submitter
	animalRepo interfaces.Repository
	pageSize   int
	logger     *zap.SugaredLogger
}

func NewServer(
	animalSvc *animals.Service,
	chatSvc *chat.Service,
	moderationSvc *moderation.Service,
	storySvc *stories.Service,
	submitter *wizard.Submitter,
	animalRepo interfaces.Repository,
	pageSize int,
	logger *zap.SugaredLogger,
) *Server {
	return &Server{
		animals:    animalSvc,
		chat:       chatSvc,
		moderation: moderationSvc,
		stories:    storySvc,
		submitter:  submitter,
		animalRepo: animalRepo,
		pageSize:   pageSize,
		logger:     logger,
	}
}

func identity(r *http.Request) session.Identity {
	id, _ := session.FromContext(r.Context())
	return id
}

// handleFeed serves one filtered feed page. The query parameters mirror
// the filter fields; page N is reached by loading pages 0..N so the
// response carries the full scroll state.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := feed.DefaultFilter()
	if v := q.Get("tab"); v != "" {
		filter.Tab = v
	}
	if v := q.Get("species"); v != "" {
		filter.Species = v
	}
	if v := q.Get("size"); v != "" {
		filter.Size = v
	}
	filter.Location = q.Get("location")
	filter.Search = q.Get("search")

	if q.Get("proximity") == "true" {
		lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
		lng, lngErr := strconv.ParseFloat(q.Get("lng"), 64)
		if latErr != nil || lngErr != nil {
			writeError(w, http.StatusBadRequest, "proximity requires lat and lng")
			return
		}
		filter.Proximity = true
		filter.Anchor = geo.Point{Lat: lat, Lng: lng}
	}

	page := 0
	if v := q.Get("page"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid page")
			return
		}
		page = parsed
	}

	store := feed.NewStore(s.animalRepo, s.pageSize, s.logger)
	store.SetBaseFilter(filter)
	list, err := store.Refresh(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	for i := 0; i < page && store.HasMore(); i++ {
		if list, err = store.LoadMore(r.Context()); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, feedResponse{
		Items:   list,
		HasMore: store.HasMore(),
		Filter:  filter,
	})
}

func (s *Server) handleGetAnimal(w http.ResponseWriter, r *http.Request) {
	detail, err := s.animals.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleMyAnimals(w http.ResponseWriter, r *http.Request) {
	list, err := s.animals.ListByOwner(r.Context(), identity(r).UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleUpdateAnimal(w http.ResponseWriter, r *http.Request) {
	var patch animals.UpdatePatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}

	updated, err := s.animals.Update(r.Context(), identity(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleMarkAdopted(w http.ResponseWriter, r *http.Request) {
	updated, err := s.animals.MarkAdopted(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteAnimal(w http.ResponseWriter, r *http.Request) {
	if err := s.animals.Delete(r.Context(), identity(r), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSubmit accepts the completed wizard draft as a multipart form:
// scalar fields plus up to five files under "images".
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSubmitBytes)
	if err := r.ParseMultipartForm(maxSubmitBytes); err != nil {
		writeError(w, http.StatusBadRequest, "malformed multipart body")
		return
	}

	draft, err := draftFromForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	animal, err := s.submitter.Submit(r.Context(), identity(r).UserID, draft)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, animal)
}

func draftFromForm(r *http.Request) (wizard.Draft, error) {
	form := r.MultipartForm

	value := func(key string) string {
		if vals := form.Value[key]; len(vals) > 0 {
			return vals[0]
		}
		return ""
	}
	boolValue := func(key string) bool {
		return value(key) == "true"
	}

	draft := wizard.Draft{
		Type:           wizard.PubType(value("type")),
		Province:       value("province"),
		Area:           value("area"),
		Provenance:     value("provenance"),
		Reference:      value("reference"),
		Title:          value("title"),
		Name:           value("name"),
		NameUnknown:    boolValue("name_unknown"),
		Species:        value("species"),
		Sex:            value("sex"),
		Age:            value("age"),
		AgeApproximate: boolValue("age_approximate"),
		Size:           value("size"),
		Description:    value("description"),
		Personality:    value("personality"),
		HealthInfo:     value("health_info"),
		AntiSaleAck:    boolValue("anti_sale_ack"),
	}

	if lat := value("latitude"); lat != "" {
		parsed, err := strconv.ParseFloat(lat, 64)
		if err != nil {
			return draft, err
		}
		draft.Latitude = &parsed
	}
	if lng := value("longitude"); lng != "" {
		parsed, err := strconv.ParseFloat(lng, 64)
		if err != nil {
			return draft, err
		}
		draft.Longitude = &parsed
	}

	for _, header := range form.File["images"] {
		file, err := header.Open()
		if err != nil {
			return draft, err
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return draft, err
		}
		draft.Images = append(draft.Images, media.Image{
			Data:        data,
			ContentType: header.Header.Get("Content-Type"),
			Filename:    header.Filename,
		})
	}

	return draft, nil
}

func (s *Server) handleStartConversation(w http.ResponseWriter, r *http.Request) {
	conversation, err := s.chat.Start(r.Context(), identity(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conversation)
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	list, err := s.chat.ListForUser(r.Context(), identity(r).UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	list, err := s.chat.Messages(r.Context(), identity(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}

	message, err := s.chat.Send(r.Context(), identity(r).UserID, chi.URLParam(r, "id"), body.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, message)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	updated, err := s.chat.MarkRead(r.Context(), identity(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, markReadResponse{Updated: updated})
}

func (s *Server) handleReportAnimal(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}

	report, created, err := s.moderation.ReportAnimal(r.Context(), identity(r).UserID, chi.URLParam(r, "id"), body.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, reportResponse{ID: report.ID, Status: report.Status, Created: created})
}

func (s *Server) handleReportStory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}

	report, created, err := s.moderation.ReportStory(r.Context(), identity(r).UserID, chi.URLParam(r, "id"), body.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, reportResponse{ID: report.ID, Status: report.Status, Created: created})
}

func (s *Server) handleOpenReports(w http.ResponseWriter, r *http.Request) {
	list, err := s.moderation.OpenReports(r.Context(), identity(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleResolveReport(w http.ResponseWriter, r *http.Request) {
	var resolution moderation.Resolution
	if err := decodeJSON(r, &resolution); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}

	report, err := s.moderation.Resolve(r.Context(), identity(r), chi.URLParam(r, "id"), resolution)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleOpenStoryReports(w http.ResponseWriter, r *http.Request) {
	list, err := s.moderation.OpenStoryReports(r.Context(), identity(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleResolveStoryReport(w http.ResponseWriter, r *http.Request) {
	var resolution moderation.Resolution
	if err := decodeJSON(r, &resolution); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}

	report, err := s.moderation.ResolveStoryReport(r.Context(), identity(r), chi.URLParam(r, "id"), resolution)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListStories(w http.ResponseWriter, r *http.Request) {
	list, err := s.stories.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetStory(w http.ResponseWriter, r *http.Request) {
	story, err := s.stories.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, story)
}

func (s *Server) handlePublishStory(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSubmitBytes)
	if err := r.ParseMultipartForm(maxSubmitBytes); err != nil {
		writeError(w, http.StatusBadRequest, "malformed multipart body")
		return
	}

	form := r.MultipartForm
	value := func(key string) string {
		if vals := form.Value[key]; len(vals) > 0 {
			return vals[0]
		}
		return ""
	}

	draft := stories.Draft{
		AnimalName: value("animal_name"),
		Story:      value("story"),
	}
	if animalID := value("animal_id"); animalID != "" {
		draft.AnimalID = &animalID
	}
	if files := form.File["image"]; len(files) > 0 {
		file, err := files[0].Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable image")
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable image")
			return
		}
		draft.Image = media.Image{
			Data:        data,
			ContentType: files[0].Header.Get("Content-Type"),
			Filename:    files[0].Filename,
		}
	}

	story, err := s.stories.Publish(r.Context(), identity(r).UserID, draft)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, story)
}

func (s *Server) handleDeleteStory(w http.ResponseWriter, r *http.Request) {
	if err := s.stories.Delete(r.Context(), identity(r), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
