package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/vtable/vtable/internal/errs"
	"github.com/vtable/vtable/internal/meta"
)

func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	var req ListSchemasRequest
	if !decodeBody(w, r, &req) {
		return
	}
	items, info, err := s.engine.ListSchemas(r.Context(), req.Page, req.Size)
	if err != nil {
		s.domainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, ListSchemasResponse{Schema: items, PageInfo: info})
}

func (s *Server) handleAddSchema(w http.ResponseWriter, r *http.Request) {
	var req AddSchemaRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sc, err := s.engine.AddSchema(r.Context(), req.Name, req.Desc)
	if err != nil {
		s.domainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, AddSchemaResponse{ID: sc.ID, Name: sc.Name})
}

func (s *Server) handleDropSchema(w http.ResponseWriter, r *http.Request) {
	var req SchemaIDRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if _, err := s.engine.DropSchema(r.Context(), req.ID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			jsonResponse(w, http.StatusOK, DropSchemaResponse{IsDrop: false})
			return
		}
		s.domainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, DropSchemaResponse{IsDrop: true})
}

func (s *Server) handleGetFields(w http.ResponseWriter, r *http.Request) {
	var req SchemaNameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	fields, err := s.engine.GetFields(r.Context(), req.Name)
	if err != nil {
		s.domainError(w, r, err)
		return
	}
	resp := GetFieldsResponse{Fields: make([][2]any, len(fields))}
	for i, f := range fields {
		resp.Fields[i] = [2]any{f.ID, f.Name}
	}
	jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleSchemaUsed(w http.ResponseWriter, r *http.Request) {
	var req SchemaIDRequest
	if !decodeBody(w, r, &req) {
		return
	}
	used, err := s.engine.IsSchemaUsed(r.Context(), req.ID)
	if err != nil {
		s.domainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, SchemaUsedResponse{ID: req.ID, IsUsed: used})
}

func (s *Server) handleAddField(w http.ResponseWriter, r *http.Request) {
	var req AddFieldRequest
	if !decodeBody(w, r, &req) {
		return
	}
	desc, err := decodeMeta(req.Meta)
	if err != nil {
		s.domainError(w, r, err)
		return
	}
	f, err := s.engine.AddField(r.Context(), req.SchemaName, req.FieldName, desc)
	if err != nil {
		s.domainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, AddFieldResponse{FieldID: f.ID, FieldName: f.Name})
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	var req SchemaNameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	def, err := s.engine.DescribeSchema(r.Context(), req.Name)
	if err != nil {
		s.domainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, def)
}

// decodeMeta accepts a descriptor object or a JSON string containing one.
func decodeMeta(raw json.RawMessage) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%w: meta is required", errs.ErrMetaParse)
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrMetaParse, err)
		}
		raw = []byte(text)
	}
	return meta.DecodeJSON(raw)
}
