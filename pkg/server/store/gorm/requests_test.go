package gorm

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halyard-advisory/halyard/pkg/model"
	"github.com/halyard-advisory/halyard/pkg/server/store"
)

func TestRequestsStore_ReviewResourceRequest_NotPending(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewRequestsStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "resource_requests" .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "requester_id", "status"}).AddRow(3, 9, model.RequestApproved))
	mock.ExpectRollback()

	_, err := s.ReviewResourceRequest(3, 1, model.RequestRejected, "")
	assert.ErrorIs(t, err, store.ErrInvalidState)
}

func TestRequestsStore_ReviewResourceRequest_UnknownDecision(t *testing.T) {
	db, _ := newMockDB(t)
	s := NewRequestsStore(db)

	_, err := s.ReviewResourceRequest(3, 1, model.RequestPending, "")
	assert.ErrorIs(t, err, store.ErrInvalidState)
}

func TestRequestsStore_ReviewProjectRequest_ApprovalCreatesProject(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewRequestsStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "project_requests" .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "requester_id", "title", "description", "status"}).
			AddRow(4, 9, "Data platform", "Consolidate warehouses", model.RequestPending))
	mock.ExpectQuery(`INSERT INTO "projects"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
	mock.ExpectExec(`UPDATE "project_requests" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req, err := s.ReviewProjectRequest(4, 1, model.RequestApproved, "Let's go")
	require.NoError(t, err)
	assert.Equal(t, model.RequestApproved, req.Status)
	require.NotNil(t, req.ProjectID)
	assert.Equal(t, uint(12), *req.ProjectID)
	require.NotNil(t, req.ReviewerID)
	assert.Equal(t, uint(1), *req.ReviewerID)
	assert.NotNil(t, req.ReviewedAt)
}

func TestRequestsStore_ReviewProjectRequest_RejectionCreatesNothing(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewRequestsStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "project_requests" .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "requester_id", "title", "status"}).
			AddRow(4, 9, "Data platform", model.RequestPending))
	mock.ExpectExec(`UPDATE "project_requests" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req, err := s.ReviewProjectRequest(4, 1, model.RequestRejected, "Out of scope")
	require.NoError(t, err)
	assert.Nil(t, req.ProjectID)
	assert.Equal(t, "Out of scope", req.ReviewNote)
}

func TestRequestsStore_CreateResourceRequest_ForcesPending(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewRequestsStore(db)

	mock.ExpectQuery(`INSERT INTO "resource_requests"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	r := &model.ResourceRequest{RequesterID: 9, ResourceType: "software", Description: "BI licences", Status: model.RequestApproved}
	require.NoError(t, s.CreateResourceRequest(r))
	assert.Equal(t, model.RequestPending, r.Status)
	assert.Equal(t, 1, r.Quantity)
}
