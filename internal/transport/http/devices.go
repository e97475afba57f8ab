package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"secureguard/internal/domain"
	"secureguard/internal/dto"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type deviceKey struct{}

func deviceFrom(ctx context.Context) (*domain.Device, bool) {
	dev, ok := ctx.Value(deviceKey{}).(*domain.Device)
	return dev, ok && dev != nil
}

// ownedDevice loads {id} (server id or client device id) for the session
// user. Devices owned by someone else are indistinguishable from missing ones.
func (h *handler) ownedDevice(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, r, domain.ErrUnauthorized)
			return
		}
		dev, err := h.devices.ResolveOwned(r.Context(), id.UserID, chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), deviceKey{}, dev)))
	})
}

func (h *handler) enrollDevice(w http.ResponseWriter, r *http.Request) {
	var req dto.EnrollDeviceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sessionUser := uuid.Nil
	if id, ok := IdentityFrom(r.Context()); ok {
		sessionUser = id.UserID
	}
	dev, created, err := h.devices.Enroll(r.Context(), sessionUser, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, dev)
}

func (h *handler) listDevices(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, r, domain.ErrUnauthorized)
		return
	}
	devices, err := h.devices.ListForUser(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func (h *handler) getDevice(w http.ResponseWriter, r *http.Request) {
	dev, _ := deviceFrom(r.Context())
	writeJSON(w, http.StatusOK, dev)
}

func (h *handler) updateDevice(w http.ResponseWriter, r *http.Request) {
	dev, _ := deviceFrom(r.Context())
	var req dto.UpdateDeviceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := h.devices.Update(r.Context(), dev.ID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteDevice(w http.ResponseWriter, r *http.Request) {
	dev, _ := deviceFrom(r.Context())
	if err := h.devices.Delete(r.Context(), dev.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listLocations(w http.ResponseWriter, r *http.Request) {
	dev, _ := deviceFrom(r.Context())
	limit := h.opts.LocationListLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, errInvalidLimit)
			return
		}
		limit = n
	}
	locs, err := h.locations.List(r.Context(), dev.ID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, locs)
}

func (h *handler) latestLocation(w http.ResponseWriter, r *http.Request) {
	dev, _ := deviceFrom(r.Context())
	loc, err := h.locations.Latest(r.Context(), dev.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (h *handler) recordLocation(w http.ResponseWriter, r *http.Request) {
	var req dto.RecordLocationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	loc, err := h.locations.Record(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, loc)
}

func (h *handler) listCommands(w http.ResponseWriter, r *http.Request) {
	dev, _ := deviceFrom(r.Context())
	cmds, err := h.commands.List(r.Context(), dev.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewCommandViews(cmds))
}

// dispatchCommand answers 200 whether or not the push hand-off succeeded;
// the outcome is in the body.
func (h *handler) dispatchCommand(w http.ResponseWriter, r *http.Request) {
	dev, _ := deviceFrom(r.Context())
	var req dto.CommandRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.commands.Dispatch(r.Context(), dev.ID, domain.CommandType(req.Command), req.Parameters)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
