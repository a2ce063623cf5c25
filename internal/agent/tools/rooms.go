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

type createRoomInput struct {
	RoomNo   string   `json:"room_no"`
	Capacity int      `json:"capacity"`
	Status   string   `json:"status"`
	Price    *float64 `json:"price"`
}

type deleteRoomInput struct {
	RoomNo  string `json:"room_no"`
	Confirm bool   `json:"confirm"`
}

type listRoomsInput struct {
	Status string `json:"status"`
}

type updateRoomInput struct {
	RoomNo string         `json:"room_no"`
	Data   map[string]any `json:"data"`
}

func (h *Hostel) roomTools() []Tool {
	return []Tool{
		NewFunc("create_room", "Create a room.",
			object([]string{"room_no", "capacity"}, map[string]SchemaProperty{
				"room_no":  {Type: "string", Description: "room number, e.g. G1"},
				"capacity": {Type: "integer", Description: "number of beds"},
				"status":   {Type: "string", Description: "available | maintenance, default available"},
				"price":    {Type: "number", Description: "price in rupees"},
			}), h.createRoom),
		NewFunc("delete_room", "Delete a room by number. Requires confirm=true to take effect.",
			object([]string{"room_no"}, map[string]SchemaProperty{
				"room_no": {Type: "string", Description: "room number"},
				"confirm": {Type: "boolean", Description: "set true only after the user confirmed"},
			}), h.deleteRoom),
		NewFunc("list_rooms", "List rooms, optionally filtered by status.",
			object(nil, map[string]SchemaProperty{
				"status": {Type: "string", Description: "status filter"},
			}), h.listRooms),
		NewFunc("update_room", "Update fields (price, capacity, status) of a room.",
			object([]string{"room_no", "data"}, map[string]SchemaProperty{
				"room_no": {Type: "string", Description: "room number"},
				"data":    {Type: "object", Description: "fields to change"},
			}), h.updateRoom),
	}
}

func (h *Hostel) createRoom(ctx context.Context, input map[string]any) (any, error) {
	var in createRoomInput
	if err := decodeArgs(input, &in); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = "available"
	}
	data := backend.Record{"room_no": in.RoomNo, "capacity": in.Capacity, "status": in.Status}
	if in.Price != nil {
		data["price"] = *in.Price
	}
	rec, err := h.be.CreateRoom(ctx, data)
	if err != nil {
		return nil, err
	}
	return single(fmt.Sprintf("Created room %s.", in.RoomNo), rec), nil
}

func (h *Hostel) deleteRoom(ctx context.Context, input map[string]any) (any, error) {
	var in deleteRoomInput
	if err := decodeArgs(input, &in); err != nil {
		return nil, err
	}
	snapshot, err := h.be.GetRoom(ctx, in.RoomNo)
	if err != nil {
		if backend.IsNotFound(err) {
			return Message("Room %s not found.", in.RoomNo), nil
		}
		return nil, err
	}
	if !in.Confirm {
		return confirmation(fmt.Sprintf("Confirm delete room %s?", in.RoomNo), map[string]any{"room_no": in.RoomNo}), nil
	}
	if _, err := h.be.DeleteRoom(ctx, in.RoomNo); err != nil {
		return nil, err
	}
	env := single(fmt.Sprintf("Deleted room %s.", in.RoomNo), snapshot)
	env.Undo = map[string]any{"action": "create_room", "data": snapshot}
	return env, nil
}

func (h *Hostel) listRooms(ctx context.Context, input map[string]any) (any, error) {
	var in listRoomsInput
	if err := decodeArgs(input, &in); err != nil {
		return nil, err
	}
	return h.be.ListRooms(ctx, in.Status)
}

func (h *Hostel) updateRoom(ctx context.Context, input map[string]any) (any, error) {
	var in updateRoomInput
	if err := decodeArgs(input, &in); err != nil {
		return nil, err
	}
	rec, err := h.be.UpdateRoom(ctx, in.RoomNo, in.Data)
	if err != nil {
		return nil, err
	}
	return single(fmt.Sprintf("Updated room %s.", in.RoomNo), rec), nil
}
