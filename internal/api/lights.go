package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/shelfbridge/shelfbridge/internal/inventory"
)

type turnOnRequest struct {
	ShelfNumber *int   `json:"ShelfNumber"`
	PositionID  *int   `json:"PositionId"`
	Color       string `json:"Color"`
}

// handleTurnOn lights a position's LEDs in the requested colour.
func (s *Server) handleTurnOn(w http.ResponseWriter, r *http.Request) {
	var req turnOnRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireInt(w, req.ShelfNumber, "ShelfNumber") || !requireInt(w, req.PositionID, "PositionId") {
		return
	}

	if err := s.inventory.TurnOn(r.Context(), *req.ShelfNumber, *req.PositionID, req.Color); err != nil {
		writeInventoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "on"})
}

type turnOffRequest struct {
	ShelfNumber *int `json:"ShelfNumber"`
	PositionID  *int `json:"PositionId"`
}

// handleTurnOff extinguishes a position's LEDs.
func (s *Server) handleTurnOff(w http.ResponseWriter, r *http.Request) {
	var req turnOffRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireInt(w, req.ShelfNumber, "ShelfNumber") || !requireInt(w, req.PositionID, "PositionId") {
		return
	}

	if err := s.inventory.TurnOff(r.Context(), *req.ShelfNumber, *req.PositionID); err != nil {
		writeInventoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "off"})
}

type turnOnAllRequest struct {
	ShelfNumber *int   `json:"ShelfNumber"`
	Color       string `json:"Color"`
}

// handleTurnOnAll lights every LED on a shelf.
func (s *Server) handleTurnOnAll(w http.ResponseWriter, r *http.Request) {
	var req turnOnAllRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireInt(w, req.ShelfNumber, "ShelfNumber") {
		return
	}

	if err := s.inventory.TurnOnAll(r.Context(), *req.ShelfNumber, req.Color); err != nil {
		writeInventoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "on"})
}

// handleTurnOffAll extinguishes every LED on a shelf.
func (s *Server) handleTurnOffAll(w http.ResponseWriter, r *http.Request) {
	var req shelfRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireInt(w, req.ShelfNumber, "ShelfNumber") {
		return
	}

	if err := s.inventory.TurnOffAll(r.Context(), *req.ShelfNumber); err != nil {
		writeInventoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "off"})
}

type rawLEDsRequest struct {
	MacAddress string `json:"Mac_Address"`
	LEDs       []int  `json:"LEDs"`
	Color      string `json:"Color"`
}

// handleSetLEDs lights raw LED indices on a controller, bypassing the
// position table. Maintenance surface for strip alignment.
func (s *Server) handleSetLEDs(w http.ResponseWriter, r *http.Request) {
	var req rawLEDsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.MacAddress == "" {
		writeBadRequest(w, "Mac_Address is required")
		return
	}

	if err := s.inventory.SetLEDs(r.Context(), req.MacAddress, req.LEDs, req.Color); err != nil {
		writeInventoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "on"})
}

// handleUnsetLEDs extinguishes raw LED indices on a controller.
func (s *Server) handleUnsetLEDs(w http.ResponseWriter, r *http.Request) {
	var req rawLEDsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.MacAddress == "" {
		writeBadRequest(w, "Mac_Address is required")
		return
	}

	if err := s.inventory.UnsetLEDs(r.Context(), req.MacAddress, req.LEDs); err != nil {
		writeInventoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "off"})
}

// handlePullFromDevice replaces a shelf's stored positions with the
// controller's own table via a dump request. The dump items arrive
// asynchronously; the response only confirms the request went out.
//
// An accompanying macAddress parameter makes this a one-call import: when
// the shelf number is new, the shelf is bound to that controller before the
// pull, so an already-programmed controller can be adopted in one request.
func (s *Server) handlePullFromDevice(w http.ResponseWriter, r *http.Request) {
	shelfNumber, err := strconv.Atoi(r.URL.Query().Get("shelfNumber"))
	if err != nil {
		writeBadRequest(w, "shelfNumber query parameter must be an integer")
		return
	}

	if mac := r.URL.Query().Get("macAddress"); mac != "" {
		if _, err := s.inventory.Positions(shelfNumber); errors.Is(err, inventory.ErrShelfNotFound) {
			if err := s.inventory.CreateShelf(shelfNumber, mac); err != nil {
				writeInventoryError(w, err)
				return
			}
		}
	}

	if err := s.inventory.PullFromDevice(shelfNumber); err != nil {
		writeInventoryError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"ShelfNumber": shelfNumber,
		"status":      "dump requested",
	})
}

// handlePushToDevice writes a shelf's stored positions down to its
// controller, one acknowledged update per position.
func (s *Server) handlePushToDevice(w http.ResponseWriter, r *http.Request) {
	var req shelfRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireInt(w, req.ShelfNumber, "ShelfNumber") {
		return
	}

	failed, err := s.inventory.PushToDevice(r.Context(), *req.ShelfNumber)
	if err != nil {
		writeInventoryError(w, err)
		return
	}
	if failed == nil {
		failed = []int{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ShelfNumber":     *req.ShelfNumber,
		"FailedPositions": failed,
	})
}

type macRequest struct {
	MacAddress string `json:"Mac_Address"`
}

// handleResetDevice erases a controller's stored position table.
func (s *Server) handleResetDevice(w http.ResponseWriter, r *http.Request) {
	var req macRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.MacAddress == "" {
		writeBadRequest(w, "Mac_Address is required")
		return
	}

	if err := s.inventory.ResetDevice(r.Context(), req.MacAddress); err != nil {
		writeInventoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "reset"})
}
