package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/vizboard/internal/chart"
	"github.com/JonMunkholm/vizboard/internal/dataset"
	"github.com/JonMunkholm/vizboard/internal/panel"
)

// View is a read-only snapshot of a session for templates and the JSON API.
type View struct {
	SessionID string       `json:"sessionId"`
	Dataset   *DatasetView `json:"dataset,omitempty"`
	Panels    []PanelView  `json:"panels"`
}

// DatasetView describes the loaded dataset.
type DatasetView struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Format      string          `json:"format"`
	Rows        int             `json:"rows"`
	Columns     int             `json:"columns"`
	LoadedAt    time.Time       `json:"loadedAt"`
	Categorical []string        `json:"categorical"`
	Numerical   []string        `json:"numerical"`
	Excluded    []string        `json:"excluded"`
	Preview     dataset.Preview `json:"-"`
}

// PanelView is everything needed to draw one panel's controls.
type PanelView struct {
	Index     int            `json:"index"`
	Title     string         `json:"title"`
	Kind      chart.Kind     `json:"kind"`
	Columns   []string       `json:"columns"`
	Kinds     []KindOption   `json:"kinds"`
	Selectors []SelectorView `json:"selectors"`
	Message   string         `json:"message,omitempty"`
}

// KindOption is one entry of a panel's chart-kind selector.
type KindOption struct {
	Kind     chart.Kind `json:"kind"`
	Label    string     `json:"label"`
	Enabled  bool       `json:"enabled"`
	Selected bool       `json:"selected"`
}

// SelectorView is one column selector.
type SelectorView struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Options  []string `json:"options"`
	Selected string   `json:"selected"`
}

// View returns a snapshot of the session. Panels are empty until a dataset
// is loaded.
func (s *Service) View(sessionID string) (View, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return View{}, err
	}

	v := View{SessionID: sess.ID}
	err = sess.withBoard(func(ds *dataset.Dataset, b *panel.Board) error {
		sets := b.Sets()
		v.Dataset = &DatasetView{
			ID:          ds.ID,
			Name:        ds.Name,
			Format:      string(ds.Format),
			Rows:        ds.NumRows(),
			Columns:     ds.NumCols(),
			LoadedAt:    ds.LoadedAt,
			Categorical: sets.Categorical(),
			Numerical:   sets.Numerical(),
			Excluded:    sets.Excluded(),
			Preview:     ds.Preview(s.cfg.PreviewRows),
		}
		for _, p := range b.Panels() {
			v.Panels = append(v.Panels, panelView(p, sets))
		}
		return nil
	})
	if errors.Is(err, ErrNoDataset) {
		return v, nil
	}
	return v, err
}

func panelView(p panel.Panel, sets dataset.ColumnSets) PanelView {
	pv := PanelView{
		Index:   p.Index,
		Title:   p.Title(),
		Kind:    p.Kind,
		Columns: p.Columns,
		Message: panel.Unavailable(p.Kind, sets),
	}
	for _, k := range chart.Kinds() {
		pv.Kinds = append(pv.Kinds, KindOption{
			Kind:     k,
			Label:    k.Label(),
			Enabled:  panel.Eligible(k, sets),
			Selected: k == p.Kind,
		})
	}
	for i, a := range p.Kind.Args() {
		pv.Selectors = append(pv.Selectors, SelectorView{
			Name:     fmt.Sprintf("col%d", i),
			Label:    a.Label,
			Type:     a.Type.String(),
			Options:  panel.Options(p.Kind, i, sets),
			Selected: p.Columns[i],
		})
	}
	return pv
}
