package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/you/studio-booking/internal/availability"
	"github.com/you/studio-booking/internal/calendar"
	"github.com/you/studio-booking/internal/catalog"
	"github.com/you/studio-booking/internal/domain"
	"github.com/you/studio-booking/internal/events"
	"github.com/you/studio-booking/internal/metrics"
	"github.com/you/studio-booking/internal/repository"
	"github.com/you/studio-booking/internal/timegrid"
	"github.com/you/studio-booking/pkg/db"
)

type published struct {
	key string
	v   any
}

type recorder struct {
	mu   sync.Mutex
	msgs []published
}

func (r *recorder) PublishJSON(_ context.Context, key string, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, published{key, v})
	return nil
}

type fixture struct {
	svc    *BookingSvc
	repo   *repository.BookingRepo
	pub    *recorder
	m      *metrics.Metrics
	icsDir string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	gdb, err := db.Open(filepath.Join(dir, "data.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	repo := repository.NewBookingRepo(gdb)
	if err := repo.Migrate(); err != nil {
		t.Fatal(err)
	}
	cat := catalog.Default()
	if err := repo.SeedHalls(context.Background(), cat.Halls); err != nil {
		t.Fatal(err)
	}
	icsDir := filepath.Join(dir, "ics")
	exp, err := calendar.NewExporter(icsDir, "Studio Lumi")
	if err != nil {
		t.Fatal(err)
	}
	pub := &recorder{}
	m := metrics.New(prometheus.NewRegistry())
	svc := NewBookingSvc(Deps{
		Repo:      repo,
		Addons:    cat.PriceList(),
		Calendar:  exp,
		Pub:       pub,
		Metrics:   m,
		PublicURL: func(p string) string { return "http://localhost:8000" + p },
	})
	svc.now = func() time.Time { return time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC) }
	return &fixture{svc: svc, repo: repo, pub: pub, m: m, icsDir: icsDir}
}

func TestCreateReceipt(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	r, err := f.svc.Create(ctx, CreateRequest{
		HallID: "A", Date: "2024-06-01", Slot: "18:00–19:00", Name: "Anna", Phone: "+70000000000",
	})
	if err != nil {
		t.Fatal(err)
	}
	if r.BookingID != "BK-2024-06-01-A-1800" || r.Price != 14300 || r.Status != domain.StatusConfirmed {
		t.Fatalf("receipt = %+v", r)
	}
	if r.ICSURL != "http://localhost:8000/ics/BK-2024-06-01-A-1800.ics" {
		t.Fatalf("ics url = %q", r.ICSURL)
	}
	if _, err := os.Stat(filepath.Join(f.icsDir, "BK-2024-06-01-A-1800.ics")); err != nil {
		t.Fatalf("ics not written: %v", err)
	}
	if len(f.pub.msgs) != 1 || f.pub.msgs[0].key != events.RKBookingCreated {
		t.Fatalf("published = %+v", f.pub.msgs)
	}
	ev := f.pub.msgs[0].v.(events.BookingCreated)
	if ev.Slot != "18:00–19:00" || ev.Price != 14300 {
		t.Fatalf("event = %+v", ev)
	}
	if got := testutil.ToFloat64(f.m.BookingsCreated.WithLabelValues("A")); got != 1 {
		t.Fatalf("created counter = %v", got)
	}
	if got := testutil.ToFloat64(f.m.RevenueTotal.WithLabelValues("A")); got != 14300 {
		t.Fatalf("revenue = %v", got)
	}

	b, err := f.svc.Get(ctx, r.BookingID)
	if err != nil {
		t.Fatal(err)
	}
	if b.StartMin != 1080 || b.EndMin != 1140 || !b.CreatedAt.Equal(f.svc.now()) {
		t.Fatalf("stored = %+v", b)
	}
}

func TestCreateIDAndAddons(t *testing.T) {
	f := setup(t)
	r, err := f.svc.Create(context.Background(), CreateRequest{
		HallID: "A", Date: "2024-06-01", Slot: "15:00-16:00", Phone: "1",
		Addons: []string{"Light kit A", "Stands", "Fog machine"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if r.BookingID != "BK-2024-06-01-A-1500" {
		t.Fatalf("id = %s", r.BookingID)
	}
	// 11000 weekend + 3000 + 1000 + 0 for the unknown add-on.
	if r.Price != 15000 {
		t.Fatalf("price = %d", r.Price)
	}
	b, err := f.repo.ByID(context.Background(), r.BookingID)
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Addons) != 3 || b.Addons[2].Name != "Fog machine" || b.Addons[2].Price != 0 {
		t.Fatalf("addons = %+v", b.Addons)
	}
}

func TestCreateValidation(t *testing.T) {
	f := setup(t)
	cases := []CreateRequest{
		{Date: "2024-06-01", Slot: "10:00", Phone: "1"},
		{HallID: "A", Slot: "10:00", Phone: "1"},
		{HallID: "A", Date: "2024-06-01", Phone: "1"},
		{HallID: "A", Date: "2024-06-01", Slot: "10:00", Phone: "   "},
		{HallID: "A", Date: "01.06.2024", Slot: "10:00", Phone: "1"},
		{HallID: "A", Date: "2024-06-01", Slot: "25:00", Phone: "1"},
		{HallID: "A", Date: "2024-06-01", Slot: "ten", Phone: "1"},
		{HallID: "Q", Date: "2024-06-01", Slot: "10:00", Phone: "1"},
	}
	for _, in := range cases {
		_, err := f.svc.Create(context.Background(), in)
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("%+v: err = %v", in, err)
		}
	}
	_, err := f.svc.Create(context.Background(), CreateRequest{HallID: "A", Date: "2024-06-01", Slot: "9h00", Phone: "1"})
	if !errors.Is(err, timegrid.ErrFormat) {
		t.Errorf("malformed slot should wrap ErrFormat: %v", err)
	}
}

func TestCreateConflict(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	in := CreateRequest{HallID: "B", Date: "2024-06-03", Slot: "12:00", Phone: "1"}
	if _, err := f.svc.Create(ctx, in); err != nil {
		t.Fatal(err)
	}
	in.Slot = "13:00"
	_, err := f.svc.Create(ctx, in)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v", err)
	}
	if got := testutil.ToFloat64(f.m.BookingConflicts.WithLabelValues("B")); got != 1 {
		t.Fatalf("conflicts = %v", got)
	}
	// Another hall is unaffected.
	in.HallID = "C"
	if _, err := f.svc.Create(ctx, in); err != nil {
		t.Fatal(err)
	}
}

func TestListSlotsDropsBusyNeighbours(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	before, err := f.svc.ListSlots(ctx, "A", "2024-06-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(before) != 12 {
		t.Fatalf("empty day has %d slots", len(before))
	}
	if _, err := f.svc.Create(ctx, CreateRequest{HallID: "A", Date: "2024-06-01", Slot: "15:00–16:00", Phone: "1"}); err != nil {
		t.Fatal(err)
	}
	after, err := f.svc.ListSlots(ctx, "A", "2024-06-01")
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"14:00–15:00", "15:00–16:00", "16:00–17:00"} {
		if slices.Contains(after, s) {
			t.Fatalf("%s still listed: %v", s, after)
		}
	}
	if len(after) != 9 {
		t.Fatalf("got %d slots: %v", len(after), after)
	}
	if _, err := f.svc.ListSlots(ctx, "", "2024-06-01"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("missing hall: %v", err)
	}
	if _, err := f.svc.ListSlots(ctx, "A", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("missing date: %v", err)
	}
}

func TestCancel(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	if err := f.svc.Cancel(ctx, "BK-nope"); err != nil {
		t.Fatalf("unknown id: %v", err)
	}
	if len(f.pub.msgs) != 0 {
		t.Fatal("no event expected for unknown id")
	}
	if err := f.svc.Cancel(ctx, " "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("empty id: %v", err)
	}

	in := CreateRequest{HallID: "A", Date: "2024-06-03", Slot: "10:00", Phone: "1"}
	r, err := f.svc.Create(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Cancel(ctx, r.BookingID); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Cancel(ctx, r.BookingID); err != nil {
		t.Fatal(err)
	}
	var cancels int
	for _, m := range f.pub.msgs {
		if m.key == events.RKBookingCancelled {
			cancels++
		}
	}
	if cancels != 1 {
		t.Fatalf("cancel events = %d", cancels)
	}
	slots, err := f.svc.ListSlots(ctx, "A", "2024-06-03")
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 12 {
		t.Fatalf("canceled booking still blocks: %v", slots)
	}

	// Rebooking the same hour reuses the id and confirms it again.
	in.Phone = "2"
	r2, err := f.svc.Create(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	if r2.BookingID != r.BookingID {
		t.Fatalf("id %s != %s", r2.BookingID, r.BookingID)
	}
	b, err := f.svc.Get(ctx, r.BookingID)
	if err != nil {
		t.Fatal(err)
	}
	if b.Status != domain.StatusConfirmed || b.Phone != "2" {
		t.Fatalf("row = %+v", b)
	}
}

func TestListForPhone(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for _, in := range []CreateRequest{
		{HallID: "A", Date: "2024-06-04", Slot: "10:00", Phone: "p"},
		{HallID: "B", Date: "2024-06-03", Slot: "18:00", Phone: "p"},
		{HallID: "A", Date: "2024-06-03", Slot: "09:00", Phone: "p"},
		{HallID: "C", Date: "2024-06-03", Slot: "09:00", Phone: "q"},
	} {
		if _, err := f.svc.Create(ctx, in); err != nil {
			t.Fatal(err)
		}
	}
	got, err := f.svc.ListForPhone(ctx, "p")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"BK-2024-06-03-A-0900", "BK-2024-06-03-B-1800", "BK-2024-06-04-A-1000"}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i, v := range got {
		if v.BookingID != want[i] {
			t.Fatalf("order: %+v", got)
		}
	}
	if got[0].Slot != "09:00–10:00" || got[1].Price != 15600 {
		t.Fatalf("views = %+v", got)
	}
	if _, err := f.svc.ListForPhone(ctx, ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("empty phone: %v", err)
	}
}

func TestConcurrentCreatesNeverOverlap(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	slots := []string{"10:00", "10:30", "11:00", "11:10", "11:45", "12:00", "12:20", "13:00"}
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		for _, s := range slots {
			wg.Add(1)
			go func(slot string) {
				defer wg.Done()
				_, err := f.svc.Create(ctx, CreateRequest{HallID: "A", Date: "2024-06-05", Slot: slot, Phone: "1"})
				if err != nil && !errors.Is(err, domain.ErrConflict) {
					t.Error(err)
				}
			}(s)
		}
	}
	wg.Wait()

	bs, err := f.repo.ListConfirmed(ctx, "A", "2024-06-05")
	if err != nil {
		t.Fatal(err)
	}
	if len(bs) == 0 {
		t.Fatal("nothing booked")
	}
	iv := availability.FromBookings(bs)
	for i := range iv {
		for j := i + 1; j < len(iv); j++ {
			if availability.Conflicts(iv[i], iv[j], domain.Buffer) {
				t.Fatalf("%+v overlaps %+v", bs[i], bs[j])
			}
		}
	}
}

func TestDayBookings(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	if _, err := f.svc.Create(ctx, CreateRequest{HallID: "B", Date: "2024-06-03", Slot: "10:00", Phone: "1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Create(ctx, CreateRequest{HallID: "A", Date: "2024-06-03", Slot: "12:00", Phone: "1"}); err != nil {
		t.Fatal(err)
	}
	got, err := f.svc.DayBookings(ctx, "2024-06-03")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].HallID != "A" {
		t.Fatalf("got %+v", got)
	}
	if _, err := f.svc.DayBookings(ctx, "June"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("bad date: %v", err)
	}
}

type brokenCalendar struct{}

func (brokenCalendar) Export(*domain.Booking, *domain.Hall) (string, error) {
	return "", errors.New("disk full")
}

func TestCreateKeepsBookingWhenCalendarFails(t *testing.T) {
	f := setup(t)
	f.svc.cal = brokenCalendar{}
	ctx := context.Background()
	r, err := f.svc.Create(ctx, CreateRequest{HallID: "A", Date: "2024-06-03", Slot: "11:00", Phone: "1"})
	if err != nil {
		t.Fatalf("create failed on calendar error: %v", err)
	}
	if r.ICSURL != "" {
		t.Fatalf("ics url = %q", r.ICSURL)
	}
	b, err := f.svc.Get(ctx, r.BookingID)
	if err != nil {
		t.Fatal(err)
	}
	if b.Status != domain.StatusConfirmed {
		t.Fatalf("status = %s", b.Status)
	}
	if got := testutil.ToFloat64(f.m.ICSFailures); got != 1 {
		t.Fatalf("ics failures = %v", got)
	}
	if len(f.pub.msgs) != 1 || f.pub.msgs[0].key != events.RKBookingCreated {
		t.Fatalf("published = %+v", f.pub.msgs)
	}
}
