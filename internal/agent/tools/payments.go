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
	"strings"

	"agentwardan/internal/backend"
	pkgerrors "agentwardan/pkg/errors"
)

var paymentStatuses = []string{"paid", "pending", "overdue"}

type createPaymentByNameInput struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Month  int     `json:"month"`
	Year   int     `json:"year"`
	Status string  `json:"status"`
}

type setPaymentsStatusInput struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	PaymentID int    `json:"payment_id"`
}

func (h *Hostel) paymentTools() []Tool {
	return []Tool{
		NewFunc("payments_by_name", "Show a student's payments with a paid/pending/overdue breakdown.",
			object([]string{"name"}, map[string]SchemaProperty{
				"name": {Type: "string", Description: "student name"},
			}), h.paymentsByName),
		NewFunc("create_payment_by_name", "Record a cash payment for a student by name.",
			object([]string{"name", "amount"}, map[string]SchemaProperty{
				"name":   {Type: "string", Description: "student name"},
				"amount": {Type: "number", Description: "amount in rupees"},
				"month":  {Type: "integer", Description: "1-12, defaults to the current month"},
				"year":   {Type: "integer", Description: "defaults to the current year"},
				"status": {Type: "string", Description: "paid | pending | overdue, default pending"},
			}), h.createPaymentByName),
		NewFunc("set_payments_status_by_name", "Set the status of all (or one) of a student's payments.",
			object([]string{"name", "status"}, map[string]SchemaProperty{
				"name":       {Type: "string", Description: "student name"},
				"status":     {Type: "string", Description: "paid | pending | overdue"},
				"payment_id": {Type: "integer", Description: "only this payment, optional"},
			}), h.setPaymentsStatusByName),
	}
}

// lookupPayments tries the exact-name endpoint and falls back to a name
// search plus a by-id listing.
func (h *Hostel) lookupPayments(ctx context.Context, name string) (string, []backend.Record, *Envelope, error) {
	pays, err := h.be.StudentPayments(ctx, name)
	if err == nil {
		return name, pays, nil, nil
	}
	if !backend.IsNotFound(err) {
		return "", nil, nil, err
	}
	st, env, err := h.resolveStudent(ctx, name)
	if err != nil || env != nil {
		return "", nil, env, err
	}
	id, _ := backend.Int(st, "id")
	pays, err = h.be.ListPayments(ctx, "", id)
	if err != nil {
		return "", nil, nil, err
	}
	return backend.String(st, "name"), pays, nil, nil
}

// paymentInsights summarizes payments per status.
func paymentInsights(name string, pays []backend.Record) string {
	if len(pays) == 0 {
		return fmt.Sprintf("%s has no payments on record.", name)
	}
	count := map[string]int{}
	sum := map[string]float64{}
	total := 0.0
	for _, p := range pays {
		status := strings.ToLower(backend.String(p, "status"))
		amount, _ := backend.Float(p, "amount")
		count[status]++
		sum[status] += amount
		total += amount
	}
	parts := make([]string, 0, len(paymentStatuses))
	for _, s := range paymentStatuses {
		parts = append(parts, fmt.Sprintf("%d %s (%s)", count[s], s, FormatINR(sum[s])))
	}
	return fmt.Sprintf("%s has %d payment(s): %s. Total %s.", name, len(pays), strings.Join(parts, ", "), FormatINR(total))
}

func paymentsEnvelope(summary string, pays []backend.Record) Envelope {
	env := Normalize(pays)
	env.Summary = summary
	return env
}

func (h *Hostel) paymentsByName(ctx context.Context, input map[string]any) (any, error) {
	var in studentNameInput
	if err := decodeArgs(input, &in); err != nil {
		return nil, err
	}
	who, pays, env, err := h.lookupPayments(ctx, in.Name)
	if err != nil || env != nil {
		return env, err
	}
	return paymentsEnvelope(paymentInsights(who, pays), pays), nil
}

func validStatus(s string) bool {
	for _, v := range paymentStatuses {
		if s == v {
			return true
		}
	}
	return false
}

func (h *Hostel) createPaymentByName(ctx context.Context, input map[string]any) (any, error) {
	var in createPaymentByNameInput
	if err := decodeArgs(input, &in); err != nil {
		return nil, err
	}
	if in.Amount <= 0 {
		return nil, pkgerrors.InvalidArgf("amount must be positive")
	}
	in.Status = strings.ToLower(in.Status)
	if in.Status == "" {
		in.Status = "pending"
	}
	if !validStatus(in.Status) {
		return nil, pkgerrors.InvalidArgf("status must be one of %s", strings.Join(paymentStatuses, ", "))
	}
	now := h.now()
	if in.Month == 0 {
		in.Month = int(now.Month())
	}
	if in.Year == 0 {
		in.Year = now.Year()
	}
	data := backend.Record{
		"amount":         in.Amount,
		"month":          in.Month,
		"year":           in.Year,
		"status":         in.Status,
		"payment_method": "Cash",
	}

	who := in.Name
	_, err := h.be.CreatePaymentByName(ctx, who, data)
	if backend.IsNotFound(err) {
		st, env, rerr := h.resolveStudent(ctx, in.Name)
		if rerr != nil || env != nil {
			return env, rerr
		}
		who = backend.String(st, "name")
		_, err = h.be.CreatePaymentByName(ctx, who, data)
	}
	if err != nil {
		return nil, err
	}

	_, pays, env, err := h.lookupPayments(ctx, who)
	if err != nil || env != nil {
		return env, err
	}
	summary := fmt.Sprintf("Recorded payment of %s for %s. %s", FormatINR(in.Amount), who, paymentInsights(who, pays))
	return paymentsEnvelope(summary, pays), nil
}

func (h *Hostel) setPaymentsStatusByName(ctx context.Context, input map[string]any) (any, error) {
	var in setPaymentsStatusInput
	if err := decodeArgs(input, &in); err != nil {
		return nil, err
	}
	in.Status = strings.ToLower(in.Status)
	if !validStatus(in.Status) {
		return nil, pkgerrors.InvalidArgf("status must be one of %s", strings.Join(paymentStatuses, ", "))
	}
	who, pays, env, err := h.lookupPayments(ctx, in.Name)
	if err != nil || env != nil {
		return env, err
	}
	updated := make([]backend.Record, 0, len(pays))
	for _, p := range pays {
		id, _ := backend.Int(p, "id")
		if in.PaymentID != 0 && id != in.PaymentID {
			continue
		}
		amount, _ := backend.Float(p, "amount")
		rec, err := h.be.UpdatePayment(ctx, id, backend.Record{"amount": amount, "status": in.Status})
		if err != nil {
			return nil, err
		}
		updated = append(updated, rec)
	}
	if len(updated) == 0 {
		return Message("No matching payments for %s.", who), nil
	}
	return paymentsEnvelope(fmt.Sprintf("Updated %d payment(s) for %s to %s.", len(updated), who, in.Status), updated), nil
}
