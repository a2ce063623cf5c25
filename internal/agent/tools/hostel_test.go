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

package tools

import (
	"context"
	"testing"
	"time"

	einoretriever "github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentwardan/internal/backend"
	"agentwardan/internal/backend/backendtest"
)

func newHostelRegistry(t *testing.T) (*Registry, *backendtest.Server) {
	t.Helper()
	srv := backendtest.NewServer(t)
	reg := NewRegistry()
	clock := func() time.Time { return time.Date(2026, time.March, 5, 10, 0, 0, 0, time.UTC) }
	RegisterHostel(reg, backend.New(backend.Config{BaseURL: srv.URL, Timeout: 2 * time.Second}), WithClock(clock))
	return reg, srv
}

func TestDeleteRoom_ConfirmationGating(t *testing.T) {
	ctx := context.Background()
	reg, srv := newHostelRegistry(t)
	srv.AddRoom("G1", 2, 5000)

	env, err := reg.Invoke(ctx, "delete_room", map[string]any{"room_no": "G1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"summary":"Confirm delete room G1?","data":[{"confirm":true,"room_no":"G1"}]}`, env.JSON())
	assert.NotNil(t, srv.Room("G1"))
	assert.Zero(t, srv.CountCalls("DELETE "))

	env, err = reg.Invoke(ctx, "delete_room", map[string]any{"room_no": "G1", "confirm": false})
	require.NoError(t, err)
	assert.Equal(t, "Confirm delete room G1?", env.Summary)
	assert.Zero(t, srv.CountCalls("DELETE "))

	env, err = reg.Invoke(ctx, "delete_room", map[string]any{"room_no": "G1", "confirm": true})
	require.NoError(t, err)
	assert.Equal(t, "Deleted room G1.", env.Summary)
	assert.Equal(t, "create_room", env.Undo["action"])
	assert.Nil(t, srv.Room("G1"))

	env, err = reg.Invoke(ctx, "delete_room", map[string]any{"room_no": "G1"})
	require.NoError(t, err)
	assert.Equal(t, "Room G1 not found.", env.Summary)
	assert.Empty(t, env.Data)
}

func TestDeleteStudent_ConfirmationGating(t *testing.T) {
	ctx := context.Background()
	reg, srv := newHostelRegistry(t)
	id := srv.AddStudent("Asha", "")

	env, err := reg.Invoke(ctx, "delete_student", map[string]any{"student_id": id})
	require.NoError(t, err)
	require.Len(t, env.Data, 1)
	assert.Equal(t, "Confirm delete student id 1?", env.Summary)
	assert.Equal(t, map[string]any{"confirm": true, "student_id": id}, env.Data[0])
	assert.NotNil(t, srv.Student(id))

	env, err = reg.Invoke(ctx, "delete_student_by_name", map[string]any{"name": "asha"})
	require.NoError(t, err)
	assert.Equal(t, "Confirm delete student Asha (id 1)?", env.Summary)
	assert.NotNil(t, srv.Student(id))

	env, err = reg.Invoke(ctx, "delete_student_by_name", map[string]any{"name": "asha", "confirm": true})
	require.NoError(t, err)
	assert.Equal(t, "Deleted student 1.", env.Summary)
	assert.Nil(t, srv.Student(id))

	env, err = reg.Invoke(ctx, "delete_student", map[string]any{"student_id": 99})
	require.NoError(t, err)
	assert.Equal(t, "Student 99 not found.", env.Summary)
}

func TestNameResolution_Disambiguation(t *testing.T) {
	ctx := context.Background()
	reg, srv := newHostelRegistry(t)
	srv.AddRoom("G1", 2, 5000)
	srv.AddStudent("Asha Rao", "G1")
	srv.AddStudent("Asha Nair", "")
	srv.AddStudent("Ravi", "")

	for _, name := range []string{"assign_room_by_name", "delete_student_by_name", "assign_any_empty_room_by_name", "payments_by_name"} {
		t.Run(name, func(t *testing.T) {
			env, err := reg.Invoke(ctx, name, map[string]any{"name": "Asha", "room_no": "G1"})
			require.NoError(t, err)
			require.Len(t, env.Data, 2)
			assert.Contains(t, env.Summary, "Which one did you mean?")
			first := env.Data[0].(map[string]any)
			assert.Equal(t, "G1", first["room_no"])
			assert.Equal(t, "Unassigned", env.Data[1].(map[string]any)["room_no"])
		})
	}

	env, err := reg.Invoke(ctx, "assign_room_by_name", map[string]any{"name": "Zed", "room_no": "G1"})
	require.NoError(t, err)
	assert.Equal(t, "No student found matching 'Zed'.", env.Summary)
	assert.Empty(t, env.Data)
	assert.Zero(t, srv.CountCalls("PUT "))
}

func TestAssignRoomByName_Unique(t *testing.T) {
	ctx := context.Background()
	reg, srv := newHostelRegistry(t)
	srv.AddRoom("G2", 2, 5000)
	id := srv.AddStudent("Ravi", "")

	env, err := reg.Invoke(ctx, "assign_room_by_name", map[string]any{"name": "rav", "room_no": "G2"})
	require.NoError(t, err)
	assert.Equal(t, "Assigned Ravi to room G2.", env.Summary)
	assert.Equal(t, "G2", srv.Student(id)["room_no"])
}

func TestAssignAnyEmptyRoom(t *testing.T) {
	ctx := context.Background()
	reg, srv := newHostelRegistry(t)
	srv.AddRoom("A1", 2, 5000)
	srv.AddRoom("B1", 3, 5000)
	srv.AddStudent("Kiran", "B1")
	id := srv.AddStudent("Meera", "")

	env, err := reg.Invoke(ctx, "assign_any_empty_room_by_name", map[string]any{"name": "Meera"})
	require.NoError(t, err)
	assert.Equal(t, "Assigned Meera to room A1.", env.Summary)
	assert.Equal(t, "A1", srv.Student(id)["room_no"])
}

func TestAssignAnyEmptyRoom_NoneFree(t *testing.T) {
	reg, srv := newHostelRegistry(t)
	srv.AddRoom("A1", 1, 5000)
	srv.AddStudent("Kiran", "A1")
	srv.AddStudent("Meera", "")

	env, err := reg.Invoke(context.Background(), "assign_any_empty_room_by_name", map[string]any{"name": "Meera"})
	require.NoError(t, err)
	assert.Equal(t, "No empty rooms available.", env.Summary)
}

func TestPaymentsByName(t *testing.T) {
	ctx := context.Background()
	reg, srv := newHostelRegistry(t)
	id := srv.AddStudent("Asha Rao", "")
	srv.AddPayment(id, 5000, "paid")
	srv.AddPayment(id, 3000, "pending")
	srv.AddPayment(id, 1500, "overdue")

	env, err := reg.Invoke(ctx, "payments_by_name", map[string]any{"name": "Asha Rao"})
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao has 3 payment(s): 1 paid (₹5,000), 1 pending (₹3,000), 1 overdue (₹1,500). Total ₹9,500.", env.Summary)
	assert.Len(t, env.Data, 3)

	// partial name misses the exact endpoint and falls back to search
	env, err = reg.Invoke(ctx, "payments_by_name", map[string]any{"name": "asha"})
	require.NoError(t, err)
	assert.Contains(t, env.Summary, "Asha Rao has 3 payment(s)")
	assert.Equal(t, 1, srv.CountCalls("GET /payments/student/"+"asha"))
}

func TestCreatePaymentByName(t *testing.T) {
	ctx := context.Background()
	reg, srv := newHostelRegistry(t)
	srv.AddStudent("Asha Rao", "")

	env, err := reg.Invoke(ctx, "create_payment_by_name", map[string]any{"name": "asha", "amount": "2500"})
	require.NoError(t, err)
	assert.Equal(t, "Recorded payment of ₹2,500 for Asha Rao. Asha Rao has 1 payment(s): 0 paid (₹0), 1 pending (₹2,500), 0 overdue (₹0). Total ₹2,500.", env.Summary)
	require.Len(t, env.Data, 1)
	p := env.Data[0].(map[string]any)
	assert.EqualValues(t, 3, p["month"])
	assert.EqualValues(t, 2026, p["year"])
	assert.Equal(t, "Cash", p["payment_method"])

	env, err = reg.Invoke(ctx, "create_payment_by_name", map[string]any{"name": "asha", "amount": 10, "status": "refunded"})
	require.NoError(t, err)
	assert.Contains(t, env.Summary, "status must be one of")
	assert.NotEmpty(t, env.Error)
}

func TestSetPaymentsStatusByName(t *testing.T) {
	ctx := context.Background()
	reg, srv := newHostelRegistry(t)
	id := srv.AddStudent("Asha", "")
	p1 := srv.AddPayment(id, 5000, "pending")
	p2 := srv.AddPayment(id, 3000, "overdue")

	env, err := reg.Invoke(ctx, "set_payments_status_by_name", map[string]any{"name": "Asha", "status": "paid", "payment_id": p2})
	require.NoError(t, err)
	assert.Equal(t, "Updated 1 payment(s) for Asha to paid.", env.Summary)
	assert.Equal(t, "pending", srv.Payment(p1)["status"])
	assert.Equal(t, "paid", srv.Payment(p2)["status"])

	env, err = reg.Invoke(ctx, "set_payments_status_by_name", map[string]any{"name": "Asha", "status": "PAID"})
	require.NoError(t, err)
	assert.Equal(t, "Updated 2 payment(s) for Asha to paid.", env.Summary)
	assert.Equal(t, "paid", srv.Payment(p1)["status"])
}

func TestRoomAndStudentCRUD(t *testing.T) {
	ctx := context.Background()
	reg, srv := newHostelRegistry(t)

	env, err := reg.Invoke(ctx, "create_room", map[string]any{"room_no": "G9", "capacity": 2})
	require.NoError(t, err)
	assert.Equal(t, "Created room G9.", env.Summary)
	assert.Equal(t, "available", srv.Room("G9")["status"])

	env, err = reg.Invoke(ctx, "update_room", map[string]any{"room_no": "G9", "data": map[string]any{"price": 7000}})
	require.NoError(t, err)
	assert.Equal(t, "Updated room G9.", env.Summary)

	env, err = reg.Invoke(ctx, "list_rooms", nil)
	require.NoError(t, err)
	assert.Equal(t, "Found 1 record(s).", env.Summary)

	env, err = reg.Invoke(ctx, "create_student", map[string]any{"name": "Dev", "email": "dev@example.com", "room_no": "G9"})
	require.NoError(t, err)
	assert.Equal(t, "Created student Dev (id 1).", env.Summary)

	env, err = reg.Invoke(ctx, "list_students", map[string]any{"room_no": "G9"})
	require.NoError(t, err)
	assert.Len(t, env.Data, 1)

	env, err = reg.Invoke(ctx, "find_student_by_name", map[string]any{"name": "de"})
	require.NoError(t, err)
	assert.Equal(t, "Found 1 student(s) matching 'de'.", env.Summary)

	env, err = reg.Invoke(ctx, "update_student", map[string]any{"student_id": 1, "data": map[string]any{"phone": "99"}})
	require.NoError(t, err)
	assert.Equal(t, "Updated student 1.", env.Summary)

	srv.FailRoomUpdate["G9"] = 500
	env, err = reg.Invoke(ctx, "update_room", map[string]any{"room_no": "G9", "data": map[string]any{"price": 1}})
	require.NoError(t, err)
	assert.NotEmpty(t, env.Error)
	assert.Equal(t, "update_room failed: update rejected for room G9", env.Summary)
}

type staticRetriever struct{ docs []*schema.Document }

func (s staticRetriever) Retrieve(ctx context.Context, query string, opts ...einoretriever.Option) ([]*schema.Document, error) {
	return s.docs, nil
}

func TestHostelInfoTool(t *testing.T) {
	reg := NewRegistry()
	doc := &schema.Document{ID: "fees", Content: "Hostel fees is 5000 per semester."}
	reg.Register(NewHostelInfoTool(staticRetriever{docs: []*schema.Document{doc}}, 1))

	env, err := reg.Invoke(context.Background(), "hostel_info", map[string]any{"question": "what are the fees"})
	require.NoError(t, err)
	assert.Equal(t, "Hostel fees is 5000 per semester.", env.Summary)
	require.Len(t, env.Data, 1)

	reg.Register(NewHostelInfoTool(staticRetriever{}, 1))
	env, err = reg.Invoke(context.Background(), "hostel_info", map[string]any{"question": "gym"})
	require.NoError(t, err)
	assert.Equal(t, "No hostel information found for 'gym'.", env.Summary)
}
