package services

import (
	"context"
	"mealmates-backend/models"
	"testing"

	"github.com/google/uuid"
)

func TestArchiveUpsertsSingleRowPerGroup(t *testing.T) {
	db := openTestDB(t)
	svc := NewArchiveService(db)
	group, _ := seedGroup(t, db, 2)
	ctx := context.Background()

	first := []models.RankedOption{{Meal: models.MealPayload{ID: "meal-1", Name: "Meal 1"}, Yes: 2}}
	if _, err := svc.Archive(ctx, group.ID, group.Name, first, nil); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}

	second := []models.RankedOption{{Meal: models.MealPayload{ID: "meal-2", Name: "Meal 2"}, Yes: 5}}
	if _, err := svc.Archive(ctx, group.ID, group.Name, second, nil); err != nil {
		t.Fatalf("second Archive failed: %v", err)
	}

	var rows []models.TerminatedSession
	db.Where("group_id = ?", group.ID).Find(&rows)
	if len(rows) != 1 {
		t.Fatalf("archived rows: expected 1, got %d", len(rows))
	}
	if len(rows[0].TopResults) != 1 || rows[0].TopResults[0].Meal.ID != "meal-2" {
		t.Errorf("expected the later snapshot to win, got %+v", rows[0].TopResults)
	}
}

func TestFetchReturnsNilWhenAbsent(t *testing.T) {
	db := openTestDB(t)
	svc := NewArchiveService(db)

	session, err := svc.Fetch(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if session != nil {
		t.Errorf("expected nil for a group with no archive, got %+v", session)
	}
}

func TestFetchRoundTripsSnapshot(t *testing.T) {
	db := openTestDB(t)
	svc := NewArchiveService(db)
	group, users := seedGroup(t, db, 2)
	ctx := context.Background()

	top := []models.RankedOption{
		{Meal: models.MealPayload{ID: "meal-1", Name: "Meal 1"}, Yes: 2, No: 1, YesPercent: 100},
	}
	members := []models.MemberResponseSnapshot{
		{UserID: users[0].ID, Name: users[0].Name, Response: models.ResponseAccepted, YesVotes: 2},
	}
	if _, err := svc.Archive(ctx, group.ID, group.Name, top, members); err != nil {
		t.Fatal(err)
	}

	session, err := svc.Fetch(ctx, group.ID)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if session == nil {
		t.Fatal("expected a session")
	}
	if session.GroupName != group.Name {
		t.Errorf("group name: expected %q, got %q", group.Name, session.GroupName)
	}
	if len(session.TopResults) != 1 || session.TopResults[0].Meal.Name != "Meal 1" {
		t.Errorf("top results did not round-trip: %+v", session.TopResults)
	}
	if len(session.MemberResponses) != 1 || session.MemberResponses[0].Response != models.ResponseAccepted {
		t.Errorf("member responses did not round-trip: %+v", session.MemberResponses)
	}
}

func TestClearRemovesArchive(t *testing.T) {
	db := openTestDB(t)
	svc := NewArchiveService(db)
	group, _ := seedGroup(t, db, 2)
	ctx := context.Background()

	if _, err := svc.Archive(ctx, group.ID, group.Name, nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := svc.Clear(ctx, group.ID); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	session, err := svc.Fetch(ctx, group.ID)
	if err != nil || session != nil {
		t.Errorf("expected empty archive after Clear, got session=%v err=%v", session, err)
	}

	// Clearing again is harmless
	if err := svc.Clear(ctx, group.ID); err != nil {
		t.Errorf("repeated Clear failed: %v", err)
	}
}

func TestPurgeWorkingStateLeavesArchive(t *testing.T) {
	db := openTestDB(t)
	svc := NewArchiveService(db)
	group, _ := seedWorkingState(t, db)
	ctx := context.Background()

	result := svc.PurgeWorkingState(ctx, group.ID)
	if !result.Ok() {
		t.Fatalf("PurgeWorkingState reported failures: %+v", result.Failed)
	}

	votes, options, responses, mealReqs, dinnerReqs, sessions := countGroupRows(t, db, group.ID)
	if votes+options+responses+mealReqs+dinnerReqs != 0 {
		t.Errorf("leftover working state: votes=%d options=%d responses=%d meal=%d dinner=%d",
			votes, options, responses, mealReqs, dinnerReqs)
	}
	if sessions != 1 {
		t.Errorf("archived snapshot must survive the purge, got %d rows", sessions)
	}
}

func TestMemberSnapshotRollsUpResponsesAndVotes(t *testing.T) {
	db := openTestDB(t)
	archive := NewArchiveService(db)
	votes, _ := newTestVoteService(db)
	dinners := NewDinnerService(db, votes)
	group, users := seedGroup(t, db, 3)
	ctx := context.Background()

	result, err := dinners.CreateRequest(ctx, group.ID, users[0].ID, testDinnerInput())
	if err != nil {
		t.Fatal(err)
	}
	if result.AutoVote == nil {
		t.Fatalf("expected auto-spawned session: %s", result.AutoVoteErr)
	}

	if _, err := dinners.RecordResponse(ctx, result.Request.ID, users[0].ID, models.ResponseAccepted); err != nil {
		t.Fatal(err)
	}
	if _, err := dinners.RecordResponse(ctx, result.Request.ID, users[1].ID, models.ResponseDeclined); err != nil {
		t.Fatal(err)
	}

	var options []models.MealOption
	db.Where("request_id = ?", result.AutoVote.ID).Order("order_index").Find(&options)
	if err := votes.Vote(ctx, result.AutoVote.ID, options[0].ID, users[0].ID, models.VoteYes); err != nil {
		t.Fatal(err)
	}
	if err := votes.Vote(ctx, result.AutoVote.ID, options[1].ID, users[0].ID, models.VoteYes); err != nil {
		t.Fatal(err)
	}
	if err := votes.Vote(ctx, result.AutoVote.ID, options[0].ID, users[1].ID, models.VoteNo); err != nil {
		t.Fatal(err)
	}

	snapshot, err := archive.MemberSnapshot(ctx, group.ID, result.Request.ID, result.AutoVote.ID)
	if err != nil {
		t.Fatalf("MemberSnapshot failed: %v", err)
	}
	if len(snapshot) != 3 {
		t.Fatalf("snapshot entries: expected 3, got %d", len(snapshot))
	}

	byUser := make(map[uuid.UUID]models.MemberResponseSnapshot)
	for _, s := range snapshot {
		byUser[s.UserID] = s
	}

	if s := byUser[users[0].ID]; s.Response != models.ResponseAccepted || s.YesVotes != 2 || s.NoVotes != 0 {
		t.Errorf("member 0: %+v", s)
	}
	if s := byUser[users[1].ID]; s.Response != models.ResponseDeclined || s.YesVotes != 0 || s.NoVotes != 1 {
		t.Errorf("member 1: %+v", s)
	}
	// Never responded and never voted, still present in the record
	if s := byUser[users[2].ID]; s.Response != "" || s.YesVotes != 0 || s.NoVotes != 0 {
		t.Errorf("member 2: %+v", s)
	}
}
