package model

import (
	"encoding/json"
	"testing"
)

func TestActionRunsOn(t *testing.T) {
	a := &Action{
		Handler: []string{HandlerBefore},
		Method:  []string{MethodCreate, MethodUpdate},
	}

	if !a.RunsOn(HandlerBefore, MethodCreate) {
		t.Error("expected before/create to match")
	}
	if !a.RunsOn(HandlerBefore, MethodUpdate) {
		t.Error("expected before/update to match")
	}
	if a.RunsOn(HandlerAfter, MethodCreate) {
		t.Error("after is not configured")
	}
	if a.RunsOn(HandlerBefore, MethodDelete) {
		t.Error("delete is not configured")
	}
}

func TestActionRunsOnWildcards(t *testing.T) {
	a := &Action{
		Handler: []string{HandlerAfter},
		Method:  []string{MethodDelete},
	}
	if !a.RunsOn("", "") {
		t.Error("empty arguments must match anything")
	}
	if !a.RunsOn(HandlerAfter, "") {
		t.Error("empty method must act as a wildcard")
	}
	if a.RunsOn(HandlerBefore, "") {
		t.Error("wrong handler must still fail with a wildcard method")
	}
}

func TestConditionUnmarshal(t *testing.T) {
	raw := `{"field": "status", "eq": "equals", "value": "approved", "custom": "data.total > 10"}`
	var c Condition
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.Field != "status" || c.Eq != "equals" || c.Value != "approved" {
		t.Errorf("unexpected condition: %+v", c)
	}
	if c.Custom != "data.total > 10" {
		t.Errorf("unexpected custom script: %q", c.Custom)
	}
}

func TestActionUnmarshalDefaults(t *testing.T) {
	raw := `{"id": "a1", "name": "webhook", "form": "f1", "priority": 5,
		"handler": ["after"], "method": ["create"],
		"settings": {"url": "https://example.com/hook"}}`
	var a Action
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if a.FormID != "f1" {
		t.Errorf("expected form key to map to FormID, got %q", a.FormID)
	}
	if a.Condition != nil {
		t.Error("absent condition must stay nil")
	}
	if a.Settings["url"] != "https://example.com/hook" {
		t.Errorf("unexpected settings: %v", a.Settings)
	}
}
