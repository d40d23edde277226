//go:build testutil
// +build testutil

package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/Spok95/face-rating-bot/internal/assign"
	"github.com/Spok95/face-rating-bot/internal/db"
	"github.com/Spok95/face-rating-bot/internal/models"
	"github.com/Spok95/face-rating-bot/internal/testutil/testdb"
)

func start(t *testing.T) *sql.DB {
	t.Helper()
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(h.Close)
	return h.DB
}

func mustSave(t *testing.T, database *sql.DB, image string, rating float64, participant string) models.Rating {
	t.Helper()
	r, err := db.SaveRating(context.Background(), database, image, rating, participant)
	if err != nil {
		t.Fatalf("save %s/%s: %v", participant, image, err)
	}
	return r
}

func mustInsert(t *testing.T, database *sql.DB, r models.Rating) {
	t.Helper()
	if err := db.InsertRating(context.Background(), database, r); err != nil {
		t.Fatalf("insert %+v: %v", r, err)
	}
}

func TestRatedImageIDs_AllKinds(t *testing.T) {
	database := start(t)
	ctx := context.Background()

	mustSave(t, database, "A.png", 8.0, "X")
	mustSave(t, database, "B.png", models.RatingSkip, "X")
	mustSave(t, database, "C.png", models.RatingFlag, "X")
	mustSave(t, database, "A.png", 9.0, "X") // повтор не должен дублировать id
	mustSave(t, database, "D.png", 5.0, "Y")

	ids, err := db.RatedImageIDs(ctx, database, "X")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"A.png", "B.png", "C.png"}
	if len(ids) != len(want) {
		t.Fatalf("rated ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("rated ids = %v, want %v", ids, want)
		}
	}

	empty, err := db.RatedImageIDs(ctx, database, "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("ожидали пустой (не nil) список, получили %#v", empty)
	}
}

// Каталог {A,B,C}: X оценил A, пропустил B, пожаловался на C — выбор исчерпан.
func TestScenario_ExhaustedAfterAllKinds(t *testing.T) {
	database := start(t)
	ctx := context.Background()
	catalog := []string{"A", "B", "C"}

	mustSave(t, database, "A", 8.0, "X")
	mustSave(t, database, "B", models.RatingSkip, "X")
	mustSave(t, database, "C", models.RatingFlag, "X")

	rated, err := db.RatedImageIDs(ctx, database, "X")
	if err != nil {
		t.Fatal(err)
	}
	s := assign.NewSession()
	if id, ok := s.Next(catalog, rated); ok {
		t.Fatalf("ожидали exhausted, получили %q", id)
	}
	if s.State() != assign.Exhausted {
		t.Fatalf("state = %v", s.State())
	}

	stats, err := db.ImageStatistics(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	byID := map[string]models.ImageStats{}
	for _, st := range stats {
		byID[st.ImageID] = st
	}
	if a := byID["A"]; a.Valid != 1 || a.Mean == nil || *a.Mean != 8.0 {
		t.Fatalf("A: %+v", a)
	}
	if b := byID["B"]; b.Skips != 1 || b.Valid != 0 || b.Mean != nil || b.Min != nil || b.Max != nil {
		t.Fatalf("B: %+v", b)
	}
	if c := byID["C"]; c.Flags != 1 || c.Mean != nil {
		t.Fatalf("C: %+v", c)
	}
}

func TestUndoLastRating(t *testing.T) {
	database := start(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	mustInsert(t, database, models.Rating{ID: "1", ImageID: "A", Rating: 7, Participant: "p", Timestamp: base})
	mustInsert(t, database, models.Rating{ID: "2", ImageID: "B", Rating: 6, Participant: "p", Timestamp: base.Add(time.Second)})
	mustInsert(t, database, models.Rating{ID: "3", ImageID: "A", Rating: -1, Participant: "p", Timestamp: base.Add(2 * time.Second)})
	mustInsert(t, database, models.Rating{ID: "9", ImageID: "Z", Rating: 3, Participant: "other", Timestamp: base.Add(time.Hour)})

	// самая свежая запись p — пропуск A; A остаётся в оценённых из-за записи "1"
	r, found, err := db.UndoLastRating(ctx, database, "p")
	if err != nil || !found {
		t.Fatalf("undo: found=%v err=%v", found, err)
	}
	if r.ID != "3" || r.ImageID != "A" || r.Rating != -1 {
		t.Fatalf("удалили не ту запись: %+v", r)
	}
	ids, _ := db.RatedImageIDs(ctx, database, "p")
	if len(ids) != 2 {
		t.Fatalf("rated после undo = %v", ids)
	}

	// следующая — B: пропадает из оценённых
	r, found, err = db.UndoLastRating(ctx, database, "p")
	if err != nil || !found || r.ID != "2" {
		t.Fatalf("второй undo: %+v found=%v err=%v", r, found, err)
	}
	ids, _ = db.RatedImageIDs(ctx, database, "p")
	if len(ids) != 1 || ids[0] != "A" {
		t.Fatalf("rated после второго undo = %v", ids)
	}

	all, _ := db.AllRatings(ctx, database)
	if len(all) != 2 {
		t.Fatalf("строк осталось %d, ожидали 2 (чужие записи не трогаем)", len(all))
	}
}

func TestUndoLastRating_TieBreakByID(t *testing.T) {
	database := start(t)
	ctx := context.Background()
	ts := time.Now().UTC().Truncate(time.Second)

	mustInsert(t, database, models.Rating{ID: "a", ImageID: "A", Rating: 7, Participant: "p", Timestamp: ts})
	mustInsert(t, database, models.Rating{ID: "b", ImageID: "B", Rating: 7, Participant: "p", Timestamp: ts})

	r, found, err := db.UndoLastRating(ctx, database, "p")
	if err != nil || !found {
		t.Fatal(found, err)
	}
	if r.ID != "b" {
		t.Fatalf("при равном времени ожидали запись с большим id, удалили %q", r.ID)
	}
}

func TestUndoLastRating_NotFound(t *testing.T) {
	database := start(t)

	_, found, err := db.UndoLastRating(context.Background(), database, "ghost")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("found == true для участника без записей")
	}
}

func TestCleanup_Substring(t *testing.T) {
	database := start(t)
	ctx := context.Background()

	mustSave(t, database, "A", 5, "test1")
	mustSave(t, database, "B", 6, "test1")
	mustSave(t, database, "A", 7, "TEST2")
	mustSave(t, database, "A", 8, "alice")

	res, err := db.CleanupParticipants(ctx, database, "test", false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Participants != 2 || res.Rows != 3 {
		t.Fatalf("cleanup = %+v, ожидали 2 участника и 3 строки", res)
	}
	all, _ := db.AllRatings(ctx, database)
	if len(all) != 1 || all[0].Participant != "alice" {
		t.Fatalf("осталось: %+v", all)
	}
}

func TestCleanup_Exact(t *testing.T) {
	database := start(t)
	ctx := context.Background()

	mustSave(t, database, "A", 5, "bob")
	mustSave(t, database, "A", 6, "Bob")
	mustSave(t, database, "B", 6, "Bob")
	mustSave(t, database, "A", 7, "Bobby")

	res, err := db.CleanupParticipants(ctx, database, "Bob", true)
	if err != nil {
		t.Fatal(err)
	}
	if res.Participants != 1 || res.Rows != 2 {
		t.Fatalf("cleanup = %+v", res)
	}
	users, _ := db.UserStatistics(ctx, database)
	left := map[string]bool{}
	for _, u := range users {
		left[u.Participant] = true
	}
	if !left["bob"] || !left["Bobby"] || left["Bob"] {
		t.Fatalf("остались: %v", left)
	}
}

func TestCleanup_NoMatchAndEmptyPattern(t *testing.T) {
	database := start(t)
	ctx := context.Background()
	mustSave(t, database, "A", 5, "alice")

	res, err := db.CleanupParticipants(ctx, database, "zzz", false)
	if err != nil || res.Participants != 0 || res.Rows != 0 {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	if _, err := db.CleanupParticipants(ctx, database, "  ", false); !errors.Is(err, db.ErrEmptyPattern) {
		t.Fatalf("ожидали ErrEmptyPattern, получили %v", err)
	}
}

func TestFlaggedAndAllRatingsOrder(t *testing.T) {
	database := start(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	mustInsert(t, database, models.Rating{ID: "1", ImageID: "B", Rating: -2, Participant: "p", Timestamp: base})
	mustInsert(t, database, models.Rating{ID: "2", ImageID: "A", Rating: -2, Participant: "q", Timestamp: base.Add(time.Minute)})
	mustInsert(t, database, models.Rating{ID: "3", ImageID: "B", Rating: -2, Participant: "q", Timestamp: base.Add(2 * time.Minute)})
	mustInsert(t, database, models.Rating{ID: "4", ImageID: "C", Rating: 4.5, Participant: "q", Timestamp: base.Add(3 * time.Minute)})

	flagged, err := db.FlaggedImageIDs(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if len(flagged) != 2 || flagged[0] != "A" || flagged[1] != "B" {
		t.Fatalf("flagged = %v", flagged)
	}

	all, err := db.AllRatings(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 || all[0].ID != "4" || all[3].ID != "1" {
		t.Fatalf("порядок AllRatings: %+v", all)
	}
	if all[0].Rating != 4.5 {
		t.Fatalf("дробная оценка потерялась: %v", all[0].Rating)
	}
}

func TestTopAndBottom_DisjointAndMinValid(t *testing.T) {
	database := start(t)
	ctx := context.Background()

	// 6 картинок с двумя оценками и одна с единственной оценкой 10
	for i, img := range []string{"i1", "i2", "i3", "i4", "i5", "i6"} {
		v := float64(i + 2)
		mustSave(t, database, img, v, "u1")
		mustSave(t, database, img, v, "u2")
	}
	mustSave(t, database, "lonely", 10, "u1")

	top, bottom, err := db.TopAndBottomImages(ctx, database, 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 3 || len(bottom) != 3 {
		t.Fatalf("top=%v bottom=%v", top, bottom)
	}
	if top[0].ImageID != "i6" || bottom[0].ImageID != "i1" {
		t.Fatalf("top[0]=%s bottom[0]=%s", top[0].ImageID, bottom[0].ImageID)
	}
	seen := map[string]bool{}
	for _, r := range append(top, bottom...) {
		if r.ImageID == "lonely" {
			t.Fatal("картинка с одной оценкой попала в рейтинг")
		}
		if seen[r.ImageID] {
			t.Fatalf("%s в обоих списках", r.ImageID)
		}
		seen[r.ImageID] = true
	}
}

func TestOverviewAndUserStatistics(t *testing.T) {
	database := start(t)
	ctx := context.Background()

	o, err := db.OverviewMetrics(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if o.Total != 0 || o.Mean != nil || o.StdDev != nil {
		t.Fatalf("пустой журнал: %+v", o)
	}

	mustSave(t, database, "A", 2, "u")
	mustSave(t, database, "B", 4, "u")
	mustSave(t, database, "C", -1, "u")
	mustSave(t, database, "D", -2, "v")

	o, err = db.OverviewMetrics(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if o.Total != 4 || o.Valid != 2 || o.Skips != 1 || o.Flags != 1 {
		t.Fatalf("overview: %+v", o)
	}
	// выборочное: mean 3, (1+1)/(2-1) = 2, sqrt(2)
	if o.Mean == nil || *o.Mean != 3 || o.StdDev == nil || *o.StdDev < 1.414 || *o.StdDev > 1.415 {
		t.Fatalf("mean/stddev: %+v", o)
	}

	users, err := db.UserStatistics(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 || users[0].Participant != "u" || users[0].Total != 3 || users[0].Valid != 2 {
		t.Fatalf("users: %+v", users)
	}
	if users[1].Mean != nil {
		t.Fatalf("у v нет настоящих оценок, а средняя %v", *users[1].Mean)
	}
	if users[0].First.After(users[0].Last) {
		t.Fatal("first > last")
	}
}
