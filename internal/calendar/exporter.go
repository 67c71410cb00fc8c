package calendar

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/you/studio-booking/internal/domain"
)

// Exporter stores rendered files as <dir>/<booking id>.ics.
type Exporter struct {
	dir    string
	studio string
	now    func() time.Time
}

func NewExporter(dir, studio string) (*Exporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create ics dir: %w", err)
	}
	return &Exporter{dir: dir, studio: studio, now: time.Now}, nil
}

// Export renders b and writes it, replacing any earlier file of the same
// booking. It returns the URL path the file is served under.
func (x *Exporter) Export(b *domain.Booking, h *domain.Hall) (string, error) {
	ev, err := EventFor(b, h, x.studio)
	if err != nil {
		return "", err
	}
	name := b.ID + ".ics"
	tmp, err := os.CreateTemp(x.dir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("write ics: %w", err)
	}
	if _, err := tmp.Write(Render(ev, x.studio, x.now())); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write ics: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write ics: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(x.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write ics: %w", err)
	}
	return "/ics/" + name, nil
}

// Path resolves a requested file name inside the export directory. Names with
// path components or without the .ics suffix are rejected as not found.
func (x *Exporter) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || !strings.HasSuffix(name, ".ics") || strings.HasPrefix(name, ".") {
		return "", domain.ErrNotFound
	}
	p := filepath.Join(x.dir, name)
	st, err := os.Stat(p)
	if err != nil || st.IsDir() {
		return "", domain.ErrNotFound
	}
	return p, nil
}
