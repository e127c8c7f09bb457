package server

import (
	"net/http"

	"github.com/labtrack/labtrack-auth/equipment"
	"github.com/rs/zerolog/log"
)

// EquipmentListHandler returns all inventory records
func (s *Server) EquipmentListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.equipment.List()
		if err != nil {
			log.Error().Err(err).Msg("equipment list failed")
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if list == nil {
			list = []*equipment.Equipment{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// EquipmentGetHandler returns one inventory record by ID
func (s *Server) EquipmentGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := s.equipment.GetByID(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusNotFound, "equipment not found")
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

// EquipmentCreateHandler adds an inventory record
func (s *Server) EquipmentCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var item equipment.Equipment
		if err := decodeJSON(r, &item); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if item.Name == "" || item.Code == "" {
			writeError(w, http.StatusBadRequest, "name and code are required")
			return
		}
		if item.Status == "" {
			item.Status = equipment.StatusAvailable
		}
		if item.AvailableQty == 0 {
			item.AvailableQty = item.TotalQty
		}

		if err := s.equipment.Upsert(&item); err != nil {
			log.Error().Err(err).Msg("equipment create failed")
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(w, http.StatusCreated, &item)
	}
}
