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

// Package backendtest provides an in-memory fake of the hostel CRUD API for tests.
package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Server is an httptest server that mimics the HMS endpoints the tools use.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	students map[int]map[string]any
	rooms    map[string]map[string]any
	payments map[int]map[string]any
	nextID   int
	calls    []string

	// FailRoomUpdate maps a room number to the status code returned for PUT /rooms/{no}.
	FailRoomUpdate map[string]int
}

// NewServer starts an empty fake backend that is closed with the test.
func NewServer(t testing.TB) *Server {
	s := &Server{
		students:       make(map[int]map[string]any),
		rooms:          make(map[string]map[string]any),
		payments:       make(map[int]map[string]any),
		nextID:         1,
		FailRoomUpdate: make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /students/{$}", s.listStudents)
	mux.HandleFunc("POST /students/{$}", s.createStudent)
	mux.HandleFunc("GET /students/{id}", s.getStudent)
	mux.HandleFunc("PUT /students/{id}", s.updateStudent)
	mux.HandleFunc("DELETE /students/{id}", s.deleteStudent)
	mux.HandleFunc("GET /rooms/{$}", s.listRooms)
	mux.HandleFunc("POST /rooms/{$}", s.createRoom)
	mux.HandleFunc("DELETE /rooms/{$}", s.deleteRoom)
	mux.HandleFunc("GET /rooms/{no}", s.getRoom)
	mux.HandleFunc("PUT /rooms/{no}", s.updateRoom)
	mux.HandleFunc("GET /payments/{$}", s.listPayments)
	mux.HandleFunc("GET /payments/student/{name}", s.studentPayments)
	mux.HandleFunc("POST /payments/by-name/{name}", s.createPaymentByName)
	mux.HandleFunc("PUT /payments/{id}", s.updatePayment)

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

// AddStudent seeds a student and returns its id.
func (s *Server) AddStudent(name, roomNo string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	st := map[string]any{
		"id":    id,
		"name":  name,
		"email": strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
	}
	if roomNo != "" {
		st["room_no"] = roomNo
	} else {
		st["room_no"] = nil
	}
	s.students[id] = st
	return id
}

// AddRoom seeds a room.
func (s *Server) AddRoom(roomNo string, capacity int, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[roomNo] = map[string]any{"room_no": roomNo, "capacity": capacity, "status": "available", "price": price}
}

// AddPayment seeds a payment for a student and returns its id.
func (s *Server) AddPayment(studentID int, amount float64, status string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.payments[id] = map[string]any{"id": id, "student_id": studentID, "amount": amount, "status": status, "month": 1, "year": 2026}
	return id
}

// Room returns a copy of the stored room, or nil.
func (s *Server) Room(roomNo string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.rooms[roomNo])
}

// Student returns a copy of the stored student, or nil.
func (s *Server) Student(id int) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.students[id])
}

// Payment returns a copy of the stored payment, or nil.
func (s *Server) Payment(id int) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.payments[id])
}

// Calls returns "METHOD /path" for every request received so far.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// CountCalls counts received requests starting with prefix, e.g. "DELETE ".
func (s *Server) CountCalls(prefix string) int {
	n := 0
	for _, c := range s.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func clone(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func detail(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"detail": msg})
}

func decode(r *http.Request) (map[string]any, error) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body, nil
}

func (s *Server) studentsWhere(match func(map[string]any) bool) []map[string]any {
	ids := make([]int, 0, len(s.students))
	for id := range s.students {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := []map[string]any{}
	for _, id := range ids {
		if st := s.students[id]; match(st) {
			out = append(out, clone(st))
		}
	}
	return out
}

func (s *Server) listStudents(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(r.URL.Query().Get("name"))
	room := r.URL.Query().Get("room_no")
	s.mu.Lock()
	out := s.studentsWhere(func(st map[string]any) bool {
		if name != "" && !strings.Contains(strings.ToLower(fmt.Sprint(st["name"])), name) {
			return false
		}
		if room != "" && fmt.Sprint(st["room_no"]) != room {
			return false
		}
		return true
	})
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createStudent(w http.ResponseWriter, r *http.Request) {
	body, err := decode(r)
	if err != nil || body["name"] == nil {
		detail(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	id := s.AddStudent(fmt.Sprint(body["name"]), "")
	s.mu.Lock()
	for k, v := range body {
		s.students[id][k] = v
	}
	out := clone(s.students[id])
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) studentByPath(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		detail(w, http.StatusUnprocessableEntity, "invalid id")
		return 0, false
	}
	if _, ok := s.students[id]; !ok {
		detail(w, http.StatusNotFound, "Student not found")
		return 0, false
	}
	return id, true
}

func (s *Server) getStudent(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.studentByPath(w, r); ok {
		writeJSON(w, http.StatusOK, clone(s.students[id]))
	}
}

func (s *Server) updateStudent(w http.ResponseWriter, r *http.Request) {
	body, err := decode(r)
	if err != nil {
		detail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.studentByPath(w, r)
	if !ok {
		return
	}
	if room, ok := body["room_no"]; ok && room != nil {
		if _, exists := s.rooms[fmt.Sprint(room)]; !exists {
			detail(w, http.StatusBadRequest, "Room does not exist")
			return
		}
	}
	for k, v := range body {
		s.students[id][k] = v
	}
	writeJSON(w, http.StatusOK, clone(s.students[id]))
}

func (s *Server) deleteStudent(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.studentByPath(w, r); ok {
		delete(s.students, id)
		writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "id": id})
	}
}

func (s *Server) listRooms(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	s.mu.Lock()
	keys := make([]string, 0, len(s.rooms))
	for k := range s.rooms {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := []map[string]any{}
	for _, k := range keys {
		if status == "" || fmt.Sprint(s.rooms[k]["status"]) == status {
			out = append(out, clone(s.rooms[k]))
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	body, err := decode(r)
	if err != nil || body["room_no"] == nil {
		detail(w, http.StatusUnprocessableEntity, "room_no is required")
		return
	}
	no := fmt.Sprint(body["room_no"])
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rooms[no]; exists {
		detail(w, http.StatusBadRequest, "Room already exists")
		return
	}
	s.rooms[no] = body
	writeJSON(w, http.StatusCreated, clone(body))
}

func (s *Server) getRoom(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[r.PathValue("no")]
	if !ok {
		detail(w, http.StatusNotFound, "Room not found")
		return
	}
	writeJSON(w, http.StatusOK, clone(room))
}

func (s *Server) updateRoom(w http.ResponseWriter, r *http.Request) {
	no := r.PathValue("no")
	body, err := decode(r)
	if err != nil {
		detail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if code := s.FailRoomUpdate[no]; code != 0 {
		detail(w, code, "update rejected for room "+no)
		return
	}
	room, ok := s.rooms[no]
	if !ok {
		detail(w, http.StatusNotFound, "Room not found")
		return
	}
	for k, v := range body {
		room[k] = v
	}
	writeJSON(w, http.StatusOK, clone(room))
}

func (s *Server) deleteRoom(w http.ResponseWriter, r *http.Request) {
	body, err := decode(r)
	if err != nil {
		detail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	no := fmt.Sprint(body["room_no"])
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[no]; !ok {
		detail(w, http.StatusNotFound, "Room not found")
		return
	}
	delete(s.rooms, no)
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "room_no": no})
}

func (s *Server) paymentsWhere(match func(map[string]any) bool) []map[string]any {
	ids := make([]int, 0, len(s.payments))
	for id := range s.payments {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := []map[string]any{}
	for _, id := range ids {
		if p := s.payments[id]; match(p) {
			out = append(out, clone(p))
		}
	}
	return out
}

func (s *Server) exactStudent(name string) (int, bool) {
	for _, st := range s.studentsWhere(func(st map[string]any) bool {
		return strings.EqualFold(fmt.Sprint(st["name"]), name)
	}) {
		return st["id"].(int), true
	}
	return 0, false
}

func (s *Server) listPayments(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	sid := r.URL.Query().Get("student_id")
	s.mu.Lock()
	out := s.paymentsWhere(func(p map[string]any) bool {
		if status != "" && fmt.Sprint(p["status"]) != status {
			return false
		}
		return sid == "" || fmt.Sprint(p["student_id"]) == sid
	})
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) studentPayments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.exactStudent(r.PathValue("name"))
	if !ok {
		detail(w, http.StatusNotFound, "Student not found")
		return
	}
	writeJSON(w, http.StatusOK, s.paymentsWhere(func(p map[string]any) bool {
		return fmt.Sprint(p["student_id"]) == strconv.Itoa(id)
	}))
}

func (s *Server) createPaymentByName(w http.ResponseWriter, r *http.Request) {
	body, err := decode(r)
	if err != nil {
		detail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	s.mu.Lock()
	sid, ok := s.exactStudent(r.PathValue("name"))
	s.mu.Unlock()
	if !ok {
		detail(w, http.StatusNotFound, "Student not found")
		return
	}
	amount, _ := body["amount"].(float64)
	status, _ := body["status"].(string)
	if status == "" {
		status = "pending"
	}
	id := s.AddPayment(sid, amount, status)
	s.mu.Lock()
	for k, v := range body {
		s.payments[id][k] = v
	}
	s.payments[id]["status"] = status
	out := clone(s.payments[id])
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) updatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		detail(w, http.StatusUnprocessableEntity, "invalid id")
		return
	}
	body, err := decode(r)
	if err != nil {
		detail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		detail(w, http.StatusNotFound, "Payment not found")
		return
	}
	for k, v := range body {
		p[k] = v
	}
	writeJSON(w, http.StatusOK, clone(p))
}
