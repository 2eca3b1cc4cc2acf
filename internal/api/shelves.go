package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// decodeJSON decodes the request body into v, writing a 400 response and
// returning false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// requireInt checks a required integer field was present.
func requireInt(w http.ResponseWriter, field *int, name string) bool {
	if field == nil {
		writeBadRequest(w, name+" is required")
		return false
	}
	return true
}

type createShelfRequest struct {
	ShelfNumber *int   `json:"ShelfNumber"`
	MacAddress  string `json:"Mac_Address"`
}

// handleCreateShelf binds a shelf to an unassigned controller.
func (s *Server) handleCreateShelf(w http.ResponseWriter, r *http.Request) {
	var req createShelfRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireInt(w, req.ShelfNumber, "ShelfNumber") {
		return
	}
	if req.MacAddress == "" {
		writeBadRequest(w, "Mac_Address is required")
		return
	}

	if err := s.inventory.CreateShelf(*req.ShelfNumber, req.MacAddress); err != nil {
		writeInventoryError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"ShelfNumber": *req.ShelfNumber,
		"Mac_Address": req.MacAddress,
	})
}

type shelfRequest struct {
	ShelfNumber *int `json:"ShelfNumber"`
}

// handleDeleteShelf unbinds a shelf after resetting its controller.
func (s *Server) handleDeleteShelf(w http.ResponseWriter, r *http.Request) {
	var req shelfRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireInt(w, req.ShelfNumber, "ShelfNumber") {
		return
	}

	if err := s.inventory.DeleteShelf(r.Context(), *req.ShelfNumber); err != nil {
		writeInventoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ShelfNumber": *req.ShelfNumber})
}

// handleGetShelves lists all shelves with their positions.
func (s *Server) handleGetShelves(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.inventory.Shelves())
}

// handleGetPositions lists one shelf's positions.
func (s *Server) handleGetPositions(w http.ResponseWriter, r *http.Request) {
	shelfNumber, err := strconv.Atoi(chi.URLParam(r, "shelfNumber"))
	if err != nil {
		writeBadRequest(w, "shelfNumber must be an integer")
		return
	}

	positions, err := s.inventory.Positions(shelfNumber)
	if err != nil {
		writeInventoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, positions)
}

// handleGetMACAddresses lists controllers available for shelf creation.
func (s *Server) handleGetMACAddresses(w http.ResponseWriter, _ *http.Request) {
	addresses := s.inventory.UnassignedAddresses()
	if addresses == nil {
		addresses = []string{}
	}
	writeJSON(w, http.StatusOK, addresses)
}

type positionRequest struct {
	ShelfNumber *int  `json:"ShelfNumber"`
	PositionID  *int  `json:"PositionId"`
	LEDs        []int `json:"LEDs"`
}

func (s *Server) decodePositionRequest(w http.ResponseWriter, r *http.Request) (positionRequest, bool) {
	var req positionRequest
	if !decodeJSON(w, r, &req) {
		return req, false
	}
	if !requireInt(w, req.ShelfNumber, "ShelfNumber") {
		return req, false
	}
	if !requireInt(w, req.PositionID, "PositionId") {
		return req, false
	}
	return req, true
}

// handleCreatePosition stores a new position on a shelf's controller.
func (s *Server) handleCreatePosition(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodePositionRequest(w, r)
	if !ok {
		return
	}

	if err := s.inventory.CreatePosition(r.Context(), *req.ShelfNumber, *req.PositionID, req.LEDs); err != nil {
		writeInventoryError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"ShelfNumber": *req.ShelfNumber,
		"PositionId":  *req.PositionID,
		"LEDs":        req.LEDs,
	})
}

// handleUpdatePosition replaces a position's LED assignment.
func (s *Server) handleUpdatePosition(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodePositionRequest(w, r)
	if !ok {
		return
	}

	if err := s.inventory.UpdatePosition(r.Context(), *req.ShelfNumber, *req.PositionID, req.LEDs); err != nil {
		writeInventoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ShelfNumber": *req.ShelfNumber,
		"PositionId":  *req.PositionID,
		"LEDs":        req.LEDs,
	})
}

// handleDeletePosition removes a position from a shelf and its controller.
func (s *Server) handleDeletePosition(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodePositionRequest(w, r)
	if !ok {
		return
	}

	if err := s.inventory.DeletePosition(r.Context(), *req.ShelfNumber, *req.PositionID); err != nil {
		writeInventoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ShelfNumber": *req.ShelfNumber,
		"PositionId":  *req.PositionID,
	})
}
