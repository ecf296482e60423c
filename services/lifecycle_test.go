package services

import (
	"context"
	"mealmates-backend/models"
	"testing"
)

// Walks one whole decision cycle across the services, in the order the
// termination endpoint drives them: request → responses → votes → ranked
// snapshot → member roll-up → close → complete → archive → purge, then the
// resolver clearing the ground for the next cycle.
func TestFullDecisionCycle(t *testing.T) {
	db := openTestDB(t)
	votes, _ := newTestVoteService(db)
	dinners := NewDinnerService(db, votes)
	archive := NewArchiveService(db)
	resolver := NewConflictResolver(db)
	group, users := seedGroup(t, db, 4)
	ctx := context.Background()

	created, err := dinners.CreateRequest(ctx, group.ID, users[0].ID, testDinnerInput())
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}
	if created.AutoVote == nil {
		t.Fatalf("expected auto-spawned vote session: %s", created.AutoVoteErr)
	}
	session := created.AutoVote

	if _, err := dinners.RecordResponse(ctx, created.Request.ID, users[0].ID, models.ResponseAccepted); err != nil {
		t.Fatal(err)
	}
	report, err := dinners.RecordResponse(ctx, created.Request.ID, users[1].ID, models.ResponseAccepted)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Ready {
		t.Fatalf("expected readiness with 2 of 4 accepted: %+v", report)
	}

	var options []models.MealOption
	db.Where("request_id = ?", session.ID).Order("order_index ASC").Find(&options)

	// Option 1 wins with 3 yes; option 2 splits 1 yes / 2 no
	for i := 0; i < 3; i++ {
		if err := votes.Vote(ctx, session.ID, options[0].ID, users[i].ID, models.VoteYes); err != nil {
			t.Fatal(err)
		}
	}
	if err := votes.Vote(ctx, session.ID, options[1].ID, users[0].ID, models.VoteYes); err != nil {
		t.Fatal(err)
	}
	for i := 1; i < 3; i++ {
		if err := votes.Vote(ctx, session.ID, options[1].ID, users[i].ID, models.VoteNo); err != nil {
			t.Fatal(err)
		}
	}

	// Snapshot before closing, the way termination does — Close purges the rows
	ranked, err := votes.TopRanked(ctx, session.ID, users[0].ID, 3)
	if err != nil {
		t.Fatal(err)
	}
	if ranked[0].Meal.ID != options[0].ExternalMealID {
		t.Fatalf("expected option 1 to win, got %s", ranked[0].Meal.ID)
	}
	snapshot, err := archive.MemberSnapshot(ctx, group.ID, created.Request.ID, session.ID)
	if err != nil {
		t.Fatal(err)
	}

	if err := votes.Close(ctx, session.ID, users[0].ID); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	updated, err := dinners.Complete(ctx, created.Request.ID, users[0].ID)
	if err != nil || !updated {
		t.Fatalf("Complete: updated=%v err=%v", updated, err)
	}

	if _, err := archive.Archive(ctx, group.ID, group.Name, ranked, snapshot); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	cleanup := archive.PurgeWorkingState(ctx, group.ID)
	if !cleanup.Ok() {
		t.Fatalf("purge reported failures: %+v", cleanup.Failed)
	}

	// The archived snapshot is the only record left of the cycle
	voteRows, optionRows, responseRows, mealReqs, dinnerReqs, sessions := countGroupRows(t, db, group.ID)
	if voteRows+optionRows+responseRows+mealReqs+dinnerReqs != 0 {
		t.Errorf("leftover working state: votes=%d options=%d responses=%d meal=%d dinner=%d",
			voteRows, optionRows, responseRows, mealReqs, dinnerReqs)
	}
	if sessions != 1 {
		t.Fatalf("archived sessions: expected 1, got %d", sessions)
	}

	fetched, err := archive.Fetch(ctx, group.ID)
	if err != nil || fetched == nil {
		t.Fatalf("Fetch after purge: session=%v err=%v", fetched, err)
	}
	if fetched.TopResults[0].Meal.ID != options[0].ExternalMealID {
		t.Errorf("archived winner: expected %s, got %s", options[0].ExternalMealID, fetched.TopResults[0].Meal.ID)
	}
	if len(fetched.MemberResponses) != 4 {
		t.Errorf("archived member responses: expected 4, got %d", len(fetched.MemberResponses))
	}

	// Starting the next cycle: the resolver clears the archive too
	result := resolver.Resolve(ctx, group.ID)
	if !result.Ok() {
		t.Fatalf("Resolve reported failures: %+v", result.Failed)
	}
	conflicts, err := resolver.DetectConflicts(ctx, group.ID)
	if err != nil {
		t.Fatal(err)
	}
	if conflicts.Any() {
		t.Errorf("expected a clean slate, got %+v", conflicts)
	}
	if fetched, _ := archive.Fetch(ctx, group.ID); fetched != nil {
		t.Error("expected the archive to be cleared for the next cycle")
	}
}
