package http

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"bommel/internal/core"
	"bommel/internal/log"
	"bommel/internal/tree"
)

const readTimeout = 7 * time.Second

type statisticsDTO struct {
	Total             int64  `json:"totalCents"`
	Income            int64  `json:"incomeCents"`
	Expenses          int64  `json:"expensesCents"`
	TransactionsCount int64  `json:"transactionsCount"`
	Formatted         string `json:"formattedTotal"`
}

type bommelDTO struct {
	ID              int64         `json:"id"`
	ParentID        int64         `json:"parentId"`
	Label           string        `json:"label"`
	Emoji           string        `json:"emoji"`
	IsRoot          bool          `json:"isRoot"`
	Virtual         bool          `json:"virtual,omitempty"`
	Statistics      statisticsDTO `json:"statistics"`
	SubBommelsCount int           `json:"subBommelsCount"`
	Children        []bommelDTO   `json:"children"`
}

type modeDTO struct {
	IncludeDrafts bool `json:"includeDrafts"`
	Aggregate     bool `json:"aggregate"`
}

type treeDTO struct {
	Mode    modeDTO   `json:"mode"`
	Root    bommelDTO `json:"root"`
	Omitted []int64   `json:"omitted,omitempty"`
}

type targetsDTO struct {
	ID      int64   `json:"id"`
	Movable bool    `json:"movable"`
	Legal   []int64 `json:"legal"`
	Invalid []int64 `json:"invalid"`
}

type nodeDTO struct {
	ID                int64                      `json:"id"`
	ParentID          int64                      `json:"parentId"`
	Label             string                     `json:"label"`
	Emoji             string                     `json:"emoji"`
	IsRoot            bool                       `json:"isRoot"`
	TransactionsCount int64                      `json:"transactionsCount"`
	Handlings         []core.TransactionHandling `json:"transactionHandlings,omitempty"`
}

func toStatisticsDTO(s core.Statistics) statisticsDTO {
	return statisticsDTO{
		Total:             s.Total.Cents,
		Income:            s.Income.Cents,
		Expenses:          s.Expenses.Cents,
		TransactionsCount: s.TransactionsCount,
		Formatted:         s.Total.String(),
	}
}

func toBommelDTO(b *tree.Branch) bommelDTO {
	out := bommelDTO{
		ID:              b.Node.ID,
		ParentID:        b.Node.ParentID,
		Label:           b.Node.Label,
		Emoji:           b.Node.Emoji,
		IsRoot:          b.Node.IsRoot,
		Virtual:         b.Virtual,
		Statistics:      toStatisticsDTO(b.Display),
		SubBommelsCount: b.SubBommelsCount,
		Children:        make([]bommelDTO, 0, len(b.Children)),
	}
	for _, c := range b.Children {
		out.Children = append(out.Children, toBommelDTO(c))
	}
	return out
}

func toTreeDTO(t *tree.Tree, mode core.StatisticsMode) treeDTO {
	return treeDTO{
		Mode:    modeDTO{IncludeDrafts: mode.IncludeDrafts, Aggregate: mode.Aggregate},
		Root:    toBommelDTO(t.Root),
		Omitted: t.Omitted,
	}
}

// ensureLoaded reloads once if nothing has been fetched yet.
func (s *Server) ensureLoaded(ctx context.Context) error {
	if !s.coordinator.Snapshot().LoadedAt.IsZero() {
		return nil
	}
	return s.coordinator.Reload(ctx)
}

// view reloads and renders the tree for mode without touching the shared
// snapshot's mode.
func (s *Server) view(ctx context.Context, mode core.StatisticsMode) (*tree.Tree, error) {
	if err := s.coordinator.Reload(ctx); err != nil {
		return nil, err
	}
	return s.coordinator.View(ctx, mode)
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	mode, err := ParseMode(r.URL.Query(), s.coordinator.Mode())
	if err != nil {
		writeError(w, r, "Invalid statistics mode", err)
		return
	}

	key := modeKey(mode)
	if data, ok := s.treeCache.Get(key); ok {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Tree cache hit", log.FieldIncludeDrafts, mode.IncludeDrafts, log.FieldAggregate, mode.Aggregate)
		NewJSONResponse().Raw(data).Write(w)
		return
	}

	gen := s.treeCache.Generation()
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()
	t, err := s.view(ctx, mode)
	if err != nil {
		writeError(w, r, "Tree load failed", err)
		return
	}

	data, err := json.Marshal(toTreeDTO(t, mode))
	if err != nil {
		writeError(w, r, "Tree encoding failed", err)
		return
	}
	s.treeCache.SetAt(gen, key, data)
	NewJSONResponse().Raw(data).Write(w)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		writeError(w, r, "Invalid bommel id", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()
	if err := s.ensureLoaded(ctx); err != nil {
		writeError(w, r, "Tree load failed", err)
		return
	}
	n, ok := s.coordinator.Store().Get(id)
	if !ok {
		writeError(w, r, "Bommel lookup failed", &core.ValidationError{Field: "id", Err: core.ErrNodeNotFound})
		return
	}
	count, err := s.coordinator.TransactionCount(ctx, id)
	if err != nil {
		writeError(w, r, "Transaction count failed", err)
		return
	}
	dto := toNodeDTO(n)
	dto.TransactionsCount = count
	if count > 0 {
		dto.Handlings = core.TransactionHandlings()
	}
	NewJSONResponse().Body(dto).Write(w)
}

func toNodeDTO(n core.Node) nodeDTO {
	return nodeDTO{ID: n.ID, ParentID: n.ParentID, Label: n.Label, Emoji: n.Emoji, IsRoot: n.IsRoot}
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		writeError(w, r, "Invalid bommel id", err)
		return
	}
	if err := s.ensureLoaded(r.Context()); err != nil {
		writeError(w, r, "Tree load failed", err)
		return
	}
	store := s.coordinator.Store()
	if _, ok := store.Get(id); !ok {
		writeError(w, r, "Bommel lookup failed", &core.ValidationError{Field: "id", Err: core.ErrNodeNotFound})
		return
	}
	NewJSONResponse().Body(targetsDTO{
		ID:      id,
		Movable: store.Movable(id),
		Legal:   store.LegalTargets(id).Sorted(),
		Invalid: store.InvalidTargets(id).Sorted(),
	}).Write(w)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, "Invalid create request", err)
		return
	}
	parentID := core.VirtualRootID
	if p.Has("parentId") {
		var err error
		if parentID, err = p.GetID("parentId"); err != nil {
			writeError(w, r, "Invalid create request", err)
			return
		}
	}
	if err := s.ensureLoaded(r.Context()); err != nil {
		writeError(w, r, "Tree load failed", err)
		return
	}

	n, err := s.coordinator.Create(r.Context(), parentID)
	s.invalidateTree()
	if err != nil {
		writeError(w, r, "Create bommel failed", err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/bommels/"+itoa(n.ID)).
		Body(toNodeDTO(n)).
		Write(w)
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		writeError(w, r, "Invalid bommel id", err)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, "Invalid rename request", err)
		return
	}
	if err := s.ensureLoaded(r.Context()); err != nil {
		writeError(w, r, "Tree load failed", err)
		return
	}

	emoji := p.Get("emoji")
	if !p.Has("emoji") {
		if cur, ok := s.coordinator.Store().Get(id); ok {
			emoji = cur.Emoji
		}
	}
	err = s.coordinator.Rename(r.Context(), id, p.Get("label"), emoji)
	s.invalidateTree()
	if err != nil {
		writeError(w, r, "Rename bommel failed", err)
		return
	}
	n, _ := s.coordinator.Store().Get(id)
	NewJSONResponse().Body(toNodeDTO(n)).Write(w)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		writeError(w, r, "Invalid bommel id", err)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, "Invalid move request", err)
		return
	}
	target, err := p.GetID("parentId")
	if err != nil {
		writeError(w, r, "Invalid move request", err)
		return
	}
	if err := s.ensureLoaded(r.Context()); err != nil {
		writeError(w, r, "Tree load failed", err)
		return
	}

	err = s.coordinator.Move(r.Context(), id, target)
	s.invalidateTree()
	if err != nil {
		writeError(w, r, "Move bommel failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		writeError(w, r, "Invalid bommel id", err)
		return
	}
	handling := core.ParseTransactionHandling(r.URL.Query().Get("transactionHandling"))
	if err := s.ensureLoaded(r.Context()); err != nil {
		writeError(w, r, "Tree load failed", err)
		return
	}

	err = s.coordinator.Delete(r.Context(), id, handling)
	s.invalidateTree()
	if err != nil {
		writeError(w, r, "Delete bommel failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStatistics passes the collaborator's per-node figures through
// unchanged; the collaborator rolls them up when aggregate is requested.
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	mode, err := ParseMode(r.URL.Query(), s.coordinator.Mode())
	if err != nil {
		writeError(w, r, "Invalid statistics mode", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	wire, err := s.statistics.GetStatistics(ctx, s.coordinator.OrganizationID(), mode)
	if err != nil {
		writeError(w, r, "Statistics fetch failed", &core.PersistenceError{Op: "get statistics", Err: err})
		return
	}
	out := make(map[string]statisticsDTO, len(wire))
	for id, st := range wire {
		out[id] = toStatisticsDTO(st)
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil || s.templates.Lookup("tree.html") == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	mode, err := ParseMode(r.URL.Query(), s.coordinator.Mode())
	if err != nil {
		writeError(w, r, "Invalid statistics mode", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()
	t, err := s.view(ctx, mode)
	if err != nil {
		writeError(w, r, "Tree load failed", err)
		return
	}

	data := indexData{Title: t.Root.Node.Label, Mode: mode, Omitted: t.Omitted}
	if data.Title == "" {
		data.Title = "Bommels"
	}
	t.Walk(func(b *tree.Branch, depth int) {
		data.Rows = append(data.Rows, pageRow{
			ID:         b.Node.ID,
			Depth:      depth,
			Emoji:      b.Node.Emoji,
			Label:      b.Node.Label,
			Figures:    b.Display,
			SubBommels: b.SubBommelsCount,
			Virtual:    b.Virtual,
			Root:       b.Node.IsRoot,
		})
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "tree.html", data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Tree template execution failed", log.FieldError, err)
	}
}

func (s *Server) invalidateTree() {
	s.treeCache.Purge()
}
