// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentwardan/internal/backend"
	"agentwardan/internal/backend/backendtest"
	pkgerrors "agentwardan/pkg/errors"
)

func newClient(t *testing.T) (*backend.Client, *backendtest.Server) {
	srv := backendtest.NewServer(t)
	return backend.New(backend.Config{BaseURL: srv.URL, Timeout: 2 * time.Second}), srv
}

func TestClient_StudentsCRUD(t *testing.T) {
	ctx := context.Background()
	c, srv := newClient(t)
	srv.AddRoom("G1", 2, 5000)
	srv.AddStudent("Asha Rao", "")
	srv.AddStudent("Ashok Kumar", "G1")

	found, err := c.SearchStudents(ctx, "ash")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	inRoom, err := c.ListStudents(ctx, "G1")
	require.NoError(t, err)
	require.Len(t, inRoom, 1)
	assert.Equal(t, "Ashok Kumar", inRoom[0]["name"])

	created, err := c.CreateStudent(ctx, backend.Record{"name": "Meera", "email": "m@example.com"})
	require.NoError(t, err)
	id, ok := backend.Int(created, "id")
	require.True(t, ok)

	updated, err := c.UpdateStudent(ctx, id, backend.Record{"room_no": "G1"})
	require.NoError(t, err)
	assert.Equal(t, "G1", backend.String(updated, "room_no"))

	_, err = c.DeleteStudent(ctx, id)
	require.NoError(t, err)
	_, err = c.GetStudent(ctx, id)
	require.Error(t, err)
	assert.True(t, backend.IsNotFound(err))
	assert.True(t, errors.Is(err, pkgerrors.ErrNotFound))
}

func TestClient_RoomsAndPayments(t *testing.T) {
	ctx := context.Background()
	c, srv := newClient(t)
	srv.AddRoom("G1", 2, 5000)
	sid := srv.AddStudent("Asha", "G1")
	srv.AddPayment(sid, 5000, "paid")

	rooms, err := c.ListRooms(ctx, "available")
	require.NoError(t, err)
	assert.Len(t, rooms, 1)

	_, err = c.UpdateRoom(ctx, "G1", backend.Record{"price": 32000})
	require.NoError(t, err)
	assert.EqualValues(t, 32000, srv.Room("G1")["price"])

	pays, err := c.StudentPayments(ctx, "asha")
	require.NoError(t, err)
	assert.Len(t, pays, 1)

	byID, err := c.ListPayments(ctx, "", sid)
	require.NoError(t, err)
	assert.Len(t, byID, 1)

	_, err = c.DeleteRoom(ctx, "G1")
	require.NoError(t, err)
	assert.Nil(t, srv.Room("G1"))
}

func TestClient_StatusErrorDetail(t *testing.T) {
	c, srv := newClient(t)
	srv.AddRoom("G1", 1, 1000)
	srv.FailRoomUpdate["G1"] = http.StatusConflict

	_, err := c.UpdateRoom(context.Background(), "G1", backend.Record{"price": 1})
	var se *backend.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusConflict, se.Code)
	assert.Equal(t, "update rejected for room G1", se.Detail())
	assert.True(t, backend.IsStatus(err))
	assert.False(t, backend.IsNotFound(err))
}

func TestClient_TransportError(t *testing.T) {
	c := backend.New(backend.Config{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond})
	_, err := c.ListRooms(context.Background(), "")
	require.Error(t, err)
	assert.False(t, backend.IsStatus(err))
}

// droppingServer closes every connection without replying and counts attempts per method.
func droppingServer(t *testing.T) (string, func(method string) int) {
	var mu sync.Mutex
	hits := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.Method]++
		mu.Unlock()
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Error("hijack unsupported")
			return
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			_ = conn.Close()
		}
	}))
	t.Cleanup(srv.Close)
	return srv.URL, func(method string) int {
		mu.Lock()
		defer mu.Unlock()
		return hits[method]
	}
}

func TestClient_RetriesOnlyIdempotentMethods(t *testing.T) {
	url, hits := droppingServer(t)
	c := backend.New(backend.Config{BaseURL: url, Timeout: time.Second, Retries: 2, RetryWait: time.Millisecond})
	ctx := context.Background()

	_, err := c.ListRooms(ctx, "")
	require.Error(t, err)
	assert.False(t, backend.IsStatus(err))
	assert.Equal(t, 3, hits(http.MethodGet))

	_, err = c.UpdateRoom(ctx, "G1", backend.Record{"price": 1})
	require.Error(t, err)
	assert.Equal(t, 3, hits(http.MethodPut))

	_, err = c.CreatePaymentByName(ctx, "Asha", backend.Record{"amount": 100})
	require.Error(t, err)
	_, err = c.CreateStudent(ctx, backend.Record{"name": "Asha"})
	require.Error(t, err)
	assert.Equal(t, 2, hits(http.MethodPost), "POST must not be retried")
}

func TestRecordAccessors(t *testing.T) {
	r := backend.Record{"id": float64(7), "room_no": "G1", "amount": "250.5", "nil": nil}
	id, ok := backend.Int(r, "id")
	assert.True(t, ok)
	assert.Equal(t, 7, id)
	amt, ok := backend.Float(r, "amount")
	assert.True(t, ok)
	assert.Equal(t, 250.5, amt)
	assert.Equal(t, "", backend.String(r, "nil"))
	assert.Equal(t, "7", backend.String(r, "id"))
}
