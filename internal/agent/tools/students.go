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
	"fmt"

	"agentwardan/internal/backend"
)

type studentNameInput struct {
	Name string `json:"name"`
}

type createStudentInput struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	RoomNo string `json:"room_no"`
}

type updateStudentInput struct {
	StudentID int            `json:"student_id"`
	Data      map[string]any `json:"data"`
}

type deleteStudentInput struct {
	StudentID int  `json:"student_id"`
	Confirm   bool `json:"confirm"`
}

type deleteStudentByNameInput struct {
	Name    string `json:"name"`
	Confirm bool   `json:"confirm"`
}

type listStudentsInput struct {
	RoomNo string `json:"room_no"`
}

type assignRoomInput struct {
	StudentID int    `json:"student_id"`
	RoomNo    string `json:"room_no"`
}

type assignRoomByNameInput struct {
	Name   string `json:"name"`
	RoomNo string `json:"room_no"`
}

func (h *Hostel) studentTools() []Tool {
	return []Tool{
		NewFunc("find_student_by_name", "Find students whose name contains the given text.",
			object([]string{"name"}, map[string]SchemaProperty{
				"name": {Type: "string", Description: "full or partial student name"},
			}), h.findStudentByName),
		NewFunc("create_student", "Create a student record.",
			object([]string{"name", "email"}, map[string]SchemaProperty{
				"name":    {Type: "string", Description: "student name"},
				"email":   {Type: "string", Description: "email address"},
				"phone":   {Type: "string", Description: "phone number"},
				"room_no": {Type: "string", Description: "room to assign, optional"},
			}), h.createStudent),
		NewFunc("update_student", "Update fields of a student by id.",
			object([]string{"student_id", "data"}, map[string]SchemaProperty{
				"student_id": {Type: "integer", Description: "student id"},
				"data":       {Type: "object", Description: "fields to change"},
			}), h.updateStudent),
		NewFunc("delete_student", "Delete a student by id. Requires confirm=true to take effect.",
			object([]string{"student_id"}, map[string]SchemaProperty{
				"student_id": {Type: "integer", Description: "student id"},
				"confirm":    {Type: "boolean", Description: "set true only after the user confirmed"},
			}), h.deleteStudent),
		NewFunc("delete_student_by_name", "Delete a student by name. Requires confirm=true to take effect.",
			object([]string{"name"}, map[string]SchemaProperty{
				"name":    {Type: "string", Description: "student name"},
				"confirm": {Type: "boolean", Description: "set true only after the user confirmed"},
			}), h.deleteStudentByName),
		NewFunc("list_students", "List students, optionally only those in a room.",
			object(nil, map[string]SchemaProperty{
				"room_no": {Type: "string", Description: "room number filter"},
			}), h.listStudents),
		NewFunc("assign_room", "Assign a student (by id) to a room.",
			object([]string{"student_id", "room_no"}, map[string]SchemaProperty{
				"student_id": {Type: "integer", Description: "student id"},
				"room_no":    {Type: "string", Description: "room number"},
			}), h.assignRoom),
		NewFunc("assign_room_by_name", "Assign a student (by name) to a room.",
			object([]string{"name", "room_no"}, map[string]SchemaProperty{
				"name":    {Type: "string", Description: "student name"},
				"room_no": {Type: "string", Description: "room number"},
			}), h.assignRoomByName),
		NewFunc("assign_any_empty_room_by_name", "Assign a student (by name) to the room with the most free beds.",
			object([]string{"name"}, map[string]SchemaProperty{
				"name": {Type: "string", Description: "student name"},
			}), h.assignAnyEmptyRoomByName),
	}
}

func (h *Hostel) findStudentByName(ctx context.Context, input map[string]any) (any, error) {
	var in studentNameInput
	if err := decodeArgs(input, &in); err != nil {
		return nil, err
	}
	matches, err := h.be.SearchStudents(ctx, in.Name)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return Message("No student found matching '%s'.", in.Name), nil
	}
	env := Normalize(matches)
	env.Summary = fmt.Sprintf("Found %d student(s) matching '%s'.", len(matches), in.Name)
	return env, nil
}

func (h *Hostel) createStudent(ctx context.Context, input map[string]any) (any, error) {
	var in createStudentInput
	if err := decodeArgs(input, &in); err != nil {
		return nil, err
	}
	data := backend.Record{"name": in.Name, "email": in.Email}
	if in.Phone != "" {
		data["phone"] = in.Phone
	}
	if in.RoomNo != "" {
		data["room_no"] = in.RoomNo
	}
	rec, err := h.be.CreateStudent(ctx, data)
	if err != nil {
		return nil, err
	}
	id, _ := backend.Int(rec, "id")
	return single(fmt.Sprintf("Created student %s (id %d).", in.Name, id), rec), nil
}

func (h *Hostel) updateStudent(ctx context.Context, input map[string]any) (any, error) {
	var in updateStudentInput
	if err := decodeArgs(input, &in); err != nil {
		return nil, err
	}
	rec, err := h.be.UpdateStudent(ctx, in.StudentID, in.Data)
	if err != nil {
		if backend.IsNotFound(err) {
			return Message("Student %d not found.", in.StudentID), nil
		}
		return nil, err
	}
	return single(fmt.Sprintf("Updated student %d.", in.StudentID), rec), nil
}

func (h *Hostel) deleteStudent(ctx context.Context, input map[string]any) (any, error) {
	var in deleteStudentInput
	if err := decodeArgs(input, &in); err != nil {
		return nil, err
	}
	return h.deleteStudentByID(ctx, in.StudentID, in.Confirm, fmt.Sprintf("Confirm delete student id %d?", in.StudentID))
}

// deleteStudentByID checks existence, then either asks for confirmation or deletes.
func (h *Hostel) deleteStudentByID(ctx context.Context, id int, confirm bool, prompt string) (any, error) {
	snapshot, err := h.be.GetStudent(ctx, id)
	if err != nil {
		if backend.IsNotFound(err) {
			return Message("Student %d not found.", id), nil
		}
		return nil, err
	}
	if !confirm {
		return confirmation(prompt, map[string]any{"student_id": id}), nil
	}
	if _, err := h.be.DeleteStudent(ctx, id); err != nil {
		return nil, err
	}
	env := single(fmt.Sprintf("Deleted student %d.", id), snapshot)
	env.Undo = map[string]any{"action": "create_student", "data": snapshot}
	return env, nil
}

func (h *Hostel) deleteStudentByName(ctx context.Context, input map[string]any) (any, error) {
	var in deleteStudentByNameInput
	if err := decodeArgs(input, &in); err != nil {
		return nil, err
	}
	st, env, err := h.resolveStudent(ctx, in.Name)
	if err != nil || env != nil {
		return env, err
	}
	id, _ := backend.Int(st, "id")
	prompt := fmt.Sprintf("Confirm delete student %s (id %d)?", backend.String(st, "name"), id)
	return h.deleteStudentByID(ctx, id, in.Confirm, prompt)
}

func (h *Hostel) listStudents(ctx context.Context, input map[string]any) (any, error) {
	var in listStudentsInput
	if err := decodeArgs(input, &in); err != nil {
		return nil, err
	}
	return h.be.ListStudents(ctx, in.RoomNo)
}

func (h *Hostel) assign(ctx context.Context, id int, who, roomNo string) (any, error) {
	rec, err := h.be.UpdateStudent(ctx, id, backend.Record{"room_no": roomNo})
	if err != nil {
		if backend.IsNotFound(err) {
			return Message("Student %d not found.", id), nil
		}
		return nil, err
	}
	return single(fmt.Sprintf("Assigned %s to room %s.", who, roomNo), rec), nil
}

func (h *Hostel) assignRoom(ctx context.Context, input map[string]any) (any, error) {
	var in assignRoomInput
	if err := decodeArgs(input, &in); err != nil {
		return nil, err
	}
	return h.assign(ctx, in.StudentID, fmt.Sprintf("student %d", in.StudentID), in.RoomNo)
}

func (h *Hostel) assignRoomByName(ctx context.Context, input map[string]any) (any, error) {
	var in assignRoomByNameInput
	if err := decodeArgs(input, &in); err != nil {
		return nil, err
	}
	st, env, err := h.resolveStudent(ctx, in.Name)
	if err != nil || env != nil {
		return env, err
	}
	id, _ := backend.Int(st, "id")
	return h.assign(ctx, id, backend.String(st, "name"), in.RoomNo)
}

func (h *Hostel) assignAnyEmptyRoomByName(ctx context.Context, input map[string]any) (any, error) {
	var in studentNameInput
	if err := decodeArgs(input, &in); err != nil {
		return nil, err
	}
	st, env, err := h.resolveStudent(ctx, in.Name)
	if err != nil || env != nil {
		return env, err
	}
	rooms, err := h.be.ListRooms(ctx, "")
	if err != nil {
		return nil, err
	}
	students, err := h.be.ListStudents(ctx, "")
	if err != nil {
		return nil, err
	}
	occupied := make(map[string]int, len(rooms))
	for _, s := range students {
		if no := backend.String(s, "room_no"); no != "" {
			occupied[no]++
		}
	}
	best, bestFree := "", 0
	for _, r := range rooms {
		no := backend.String(r, "room_no")
		capacity, _ := backend.Int(r, "capacity")
		if free := capacity - occupied[no]; free > bestFree {
			best, bestFree = no, free
		}
	}
	if best == "" {
		return Message("No empty rooms available."), nil
	}
	id, _ := backend.Int(st, "id")
	return h.assign(ctx, id, backend.String(st, "name"), best)
}
