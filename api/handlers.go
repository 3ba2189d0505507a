/*
handlers.go - HTTP handlers for the fuel brokerage API

PURPOSE:
  Exposes the ledger operations, directory administration, reporting and
  backup over REST. Handlers parse/validate the wire shape, enforce the
  caller's scope, delegate to domain logic and map the error taxonomy to
  HTTP statuses.

SCOPE ENFORCEMENT:
  Role gating happens in the router (server.go); handlers additionally
  pin scoped callers to their own records: a fleet manager acts only for
  its organization, a station operator only for its station. Super
  admins are unscoped.

ERROR MAPPING:
  400 validation failed          409 wrong source state / lost race
  401 bad credentials            422 nothing to invoice
  403 out of caller's scope      500 integrity violation, internal
  404 unknown id

SEE ALSO:
  - dto.go: wire shapes
  - server.go: routing and role gates
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/frotagov/fuel-ledger/auth"
	"github.com/frotagov/fuel-ledger/backup"
	"github.com/frotagov/fuel-ledger/directory"
	"github.com/frotagov/fuel-ledger/ledger"
	"github.com/frotagov/fuel-ledger/metrics"
	"github.com/frotagov/fuel-ledger/report"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger  *ledger.Service
	Dir     directory.Directory
	Auth    *auth.Service
	Metrics *metrics.Metrics
}

func NewHandler(svc *ledger.Service, dir directory.Directory, authSvc *auth.Service, m *metrics.Metrics) *Handler {
	return &Handler{Ledger: svc, Dir: dir, Auth: authSvc, Metrics: m}
}

// =============================================================================
// AUTH
// =============================================================================

// Login verifies credentials and returns a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	token, user, err := h.Auth.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrBadCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "login failed", err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: toUserDTO(*user)})
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// RequestFuel creates a REQUESTED transaction with a voucher code.
func (h *Handler) RequestFuel(w http.ResponseWriter, r *http.Request) {
	var req RequestFuelDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	claims := auth.FromContext(r.Context())
	if claims.Role == directory.RoleFleetManager {
		if req.OrgID == "" {
			req.OrgID = claims.OrgID
		}
		if req.OrgID != claims.OrgID {
			writeError(w, http.StatusForbidden, "cannot request fuel for another organization", nil)
			return
		}
	}

	liters, err := parseMoney(req.EstimatedLiters)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid estimated_liters", err)
		return
	}

	tx, err := h.Ledger.RequestFuel(r.Context(), ledger.RequestFuelInput{
		OrgID:           req.OrgID,
		StationID:       req.StationID,
		VehicleID:       req.VehicleID,
		DriverName:      req.DriverName,
		FuelType:        ledger.FuelType(req.FuelType),
		EstimatedLiters: liters,
	})
	h.Metrics.Operation("request_fuel", err)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// GetTransaction returns one transaction.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Ledger.Transaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if !h.inScope(r, tx.OrgID, tx.StationID) {
		writeError(w, http.StatusForbidden, "transaction outside caller scope", nil)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// ListTransactions returns transactions matching query filters, narrowed
// to the caller's scope.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ledger.TransactionFilter{
		StationID: q.Get("station_id"),
		OrgID:     q.Get("org_id"),
		VehicleID: q.Get("vehicle_id"),
		InvoiceID: q.Get("invoice_id"),
		Status:    ledger.TransactionStatus(q.Get("status")),
	}

	claims := auth.FromContext(r.Context())
	switch claims.Role {
	case directory.RoleFleetManager:
		f.OrgID = claims.OrgID
	case directory.RoleFuelStation:
		f.StationID = claims.StationID
	}

	txs, err := h.Ledger.Transactions(r.Context(), f)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if txs == nil {
		txs = []ledger.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

// ValidateFill records the metered fill against a voucher.
func (h *Handler) ValidateFill(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ValidateFillDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	liters, err := parseMoney(req.FilledLiters)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid filled_liters", err)
		return
	}
	price, err := parseMoney(req.PricePerLiter)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price_per_liter", err)
		return
	}

	// A station operator may only validate fills at its own pumps.
	claims := auth.FromContext(r.Context())
	if claims.Role == directory.RoleFuelStation {
		tx, err := h.Ledger.Transaction(r.Context(), id)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		if tx.StationID != claims.StationID {
			writeError(w, http.StatusForbidden, "transaction belongs to another station", nil)
			return
		}
	}

	tx, err := h.Ledger.ValidateFill(r.Context(), ledger.ValidateFillInput{
		TransactionID: id,
		FilledLiters:  liters,
		PricePerLiter: price,
		Odometer:      req.Odometer,
	})
	h.Metrics.Operation("validate_fill", err)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// CancelRequest cancels a still-REQUESTED transaction.
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	claims := auth.FromContext(r.Context())
	if claims.Role == directory.RoleFleetManager {
		tx, err := h.Ledger.Transaction(r.Context(), id)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		if tx.OrgID != claims.OrgID {
			writeError(w, http.StatusForbidden, "transaction belongs to another organization", nil)
			return
		}
	}

	tx, err := h.Ledger.CancelRequest(r.Context(), id)
	h.Metrics.Operation("cancel_request", err)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// =============================================================================
// INVOICES
// =============================================================================

// GenerateInvoice consolidates the station's validated fills for one
// organization into an invoice.
func (h *Handler) GenerateInvoice(w http.ResponseWriter, r *http.Request) {
	var req GenerateInvoiceDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	claims := auth.FromContext(r.Context())
	if claims.Role == directory.RoleFuelStation {
		if req.StationID == "" {
			req.StationID = claims.StationID
		}
		if req.StationID != claims.StationID {
			writeError(w, http.StatusForbidden, "cannot invoice for another station", nil)
			return
		}
	}

	inv, err := h.Ledger.GenerateInvoice(r.Context(), ledger.GenerateInvoiceInput{
		StationID:      req.StationID,
		OrgID:          req.OrgID,
		IsAdvance:      req.IsAdvance,
		DocumentNumber: req.DocumentNumber,
		FileRef:        req.FileRef,
	})
	h.Metrics.Operation("generate_invoice", err)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// GetInvoice returns one invoice.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Ledger.Invoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if !h.inScope(r, inv.OrgID, inv.StationID) {
		writeError(w, http.StatusForbidden, "invoice outside caller scope", nil)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// ListInvoices returns invoices narrowed to the caller's scope.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ledger.InvoiceFilter{
		StationID: q.Get("station_id"),
		OrgID:     q.Get("org_id"),
		Status:    ledger.InvoiceStatus(q.Get("status")),
	}

	claims := auth.FromContext(r.Context())
	switch claims.Role {
	case directory.RoleFleetManager:
		f.OrgID = claims.OrgID
	case directory.RoleFuelStation:
		f.StationID = claims.StationID
	}

	invs, err := h.Ledger.Invoices(r.Context(), f)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if invs == nil {
		invs = []ledger.Invoice{}
	}
	writeJSON(w, http.StatusOK, invs)
}

// AttestInvoice moves PENDING_MANAGER to PENDING_ADMIN.
func (h *Handler) AttestInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.invoiceInOrgScope(w, r, id) {
		return
	}
	inv, err := h.Ledger.Attest(r.Context(), id)
	h.Metrics.Operation("attest_invoice", err)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// RejectInvoice moves PENDING_MANAGER to REJECTED, reverting members.
func (h *Handler) RejectInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req RejectInvoiceDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if !h.invoiceInOrgScope(w, r, id) {
		return
	}

	inv, err := h.Ledger.Reject(r.Context(), id, req.Reason)
	h.Metrics.Operation("reject_invoice", err)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// SettleInvoice moves PENDING_ADMIN to PAID.
func (h *Handler) SettleInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Ledger.Settle(r.Context(), chi.URLParam(r, "id"))
	h.Metrics.Operation("settle_invoice", err)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	h.Metrics.AddFeeRevenue(inv.FeeAmount)
	writeJSON(w, http.StatusOK, inv)
}

// InvoicePDF renders the invoice document.
func (h *Handler) InvoicePDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	inv, err := h.Ledger.Invoice(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if !h.inScope(r, inv.OrgID, inv.StationID) {
		writeError(w, http.StatusForbidden, "invoice outside caller scope", nil)
		return
	}

	members, err := h.Ledger.Transactions(ctx, ledger.TransactionFilter{InvoiceID: inv.ID})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	station, err := h.Dir.GetStation(ctx, inv.StationID)
	if err != nil {
		writeDirectoryError(w, err)
		return
	}
	org, err := h.Dir.GetOrganization(ctx, inv.OrgID)
	if err != nil {
		writeDirectoryError(w, err)
		return
	}

	pdf, err := report.InvoicePDF(*inv, members, *station, *org)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render invoice", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="invoice-%s.pdf"`, inv.DocumentNumber))
	w.Write(pdf)
}

// invoiceInOrgScope ensures a fleet manager only drives its own invoices.
// Writes the error response itself and reports whether to proceed.
func (h *Handler) invoiceInOrgScope(w http.ResponseWriter, r *http.Request, id string) bool {
	claims := auth.FromContext(r.Context())
	if claims.Role != directory.RoleFleetManager {
		return true
	}
	inv, err := h.Ledger.Invoice(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return false
	}
	if inv.OrgID != claims.OrgID {
		writeError(w, http.StatusForbidden, "invoice belongs to another organization", nil)
		return false
	}
	return true
}

// =============================================================================
// BALANCES
// =============================================================================

// GetBalance returns the station's running counters.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	stationID := chi.URLParam(r, "id")
	claims := auth.FromContext(r.Context())
	if claims.Role == directory.RoleFuelStation && claims.StationID != stationID {
		writeError(w, http.StatusForbidden, "balance belongs to another station", nil)
		return
	}

	b, err := h.Ledger.Balance(r.Context(), stationID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// AuditBalance recomputes the station's counters and reports drift.
func (h *Handler) AuditBalance(w http.ResponseWriter, r *http.Request) {
	audit, err := h.Ledger.AuditBalances(r.Context(), chi.URLParam(r, "id"))
	if err != nil && audit.StationID == "" {
		writeLedgerError(w, err)
		return
	}
	// Drift is reported in the body, not as an HTTP failure.
	writeJSON(w, http.StatusOK, audit)
}

// RepairBalance overwrites the counters with recomputed values.
func (h *Handler) RepairBalance(w http.ResponseWriter, r *http.Request) {
	b, err := h.Ledger.RepairBalances(r.Context(), chi.URLParam(r, "id"))
	h.Metrics.Operation("repair_balance", err)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// AuditAllBalances audits every registered station in one sweep.
func (h *Handler) AuditAllBalances(w http.ResponseWriter, r *http.Request) {
	stations, err := h.Dir.ListStations(r.Context())
	if err != nil {
		writeDirectoryError(w, err)
		return
	}

	audits := make([]ledger.BalanceAudit, 0, len(stations))
	for _, st := range stations {
		audit, err := h.Ledger.AuditBalances(r.Context(), st.ID)
		if err != nil && !errors.Is(err, ledger.ErrIntegrity) {
			writeLedgerError(w, err)
			return
		}
		audits = append(audits, audit)
	}
	writeJSON(w, http.StatusOK, audits)
}

// =============================================================================
// ADMIN - Revenue, reports, backup
// =============================================================================

// Revenue returns the platform's aggregate revenue view.
func (h *Handler) Revenue(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Ledger.Revenue(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// TransactionsReport streams the transaction statement workbook.
func (h *Handler) TransactionsReport(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Ledger.Transactions(r.Context(), ledger.TransactionFilter{
		StationID: r.URL.Query().Get("station_id"),
		OrgID:     r.URL.Query().Get("org_id"),
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	book, err := report.TransactionsXLSX(txs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render statement", err)
		return
	}

	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="transactions-%s.xlsx"`, time.Now().Format("20060102")))
	w.Write(book)
}

// ExportBackup streams a full state snapshot.
func (h *Handler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="fuel-ledger-%s.json"`, time.Now().Format("20060102-150405")))
	if err := backup.Export(r.Context(), h.Ledger.Store(), h.Dir, w); err != nil {
		// Headers are gone; all that is left is logging via the error body.
		writeError(w, http.StatusInternalServerError, "export failed", err)
	}
}

// ImportBackup replaces the ledger state from an uploaded snapshot.
func (h *Handler) ImportBackup(w http.ResponseWriter, r *http.Request) {
	restorer, ok := h.Ledger.Store().(ledger.Restorer)
	if !ok {
		writeError(w, http.StatusNotImplemented, "store does not support restore", nil)
		return
	}

	snap, err := backup.Import(r.Context(), restorer, h.Dir, r.Body)
	h.Metrics.Operation("import_backup", err)
	if err != nil {
		writeError(w, http.StatusBadRequest, "import failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "restored",
		"exported_at":   snap.ExportedAt,
		"transactions":  len(snap.Transactions),
		"invoices":      len(snap.Invoices),
		"organizations": len(snap.Organizations),
		"stations":      len(snap.Stations),
	})
}

// =============================================================================
// DIRECTORY - Organizations, stations, vehicles, users
// =============================================================================

func (h *Handler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.Dir.ListOrganizations(r.Context())
	if err != nil {
		writeDirectoryError(w, err)
		return
	}
	if orgs == nil {
		orgs = []directory.Organization{}
	}
	writeJSON(w, http.StatusOK, orgs)
}

func (h *Handler) SaveOrganization(w http.ResponseWriter, r *http.Request) {
	var org directory.Organization
	if err := json.NewDecoder(r.Body).Decode(&org); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	if org.Status == "" {
		org.Status = directory.StatusActive
	}
	if err := h.Dir.SaveOrganization(r.Context(), org); err != nil {
		writeDirectoryError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, org)
}

func (h *Handler) ListStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.Dir.ListStations(r.Context())
	if err != nil {
		writeDirectoryError(w, err)
		return
	}
	if stations == nil {
		stations = []directory.FuelStation{}
	}
	writeJSON(w, http.StatusOK, stations)
}

func (h *Handler) SaveStation(w http.ResponseWriter, r *http.Request) {
	var req SaveStationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	base, err := parseMoney(req.BaseFeePercent)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid base_fee_percent", err)
		return
	}
	advance, err := parseMoney(req.AdvanceFeePercent)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid advance_fee_percent", err)
		return
	}

	st := directory.FuelStation{
		ID:          req.ID,
		Name:        req.Name,
		TaxID:       req.TaxID,
		Address:     req.Address,
		ContactName: req.ContactName,
		Fees: ledger.FeeSchedule{
			BaseFeePercent:    base,
			AdvanceFeePercent: advance,
		},
		Products: req.Products,
		Status:   directory.RecordStatus(req.Status),
	}
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	if st.Status == "" {
		st.Status = directory.StatusActive
	}

	if err := h.Dir.SaveStation(r.Context(), st); err != nil {
		writeDirectoryError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (h *Handler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("org_id")
	claims := auth.FromContext(r.Context())
	if claims.Role == directory.RoleFleetManager {
		orgID = claims.OrgID
	}

	vehicles, err := h.Dir.ListVehicles(r.Context(), orgID)
	if err != nil {
		writeDirectoryError(w, err)
		return
	}
	if vehicles == nil {
		vehicles = []directory.Vehicle{}
	}
	writeJSON(w, http.StatusOK, vehicles)
}

func (h *Handler) SaveVehicle(w http.ResponseWriter, r *http.Request) {
	var v directory.Vehicle
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	claims := auth.FromContext(r.Context())
	if claims.Role == directory.RoleFleetManager {
		if v.OrgID == "" {
			v.OrgID = claims.OrgID
		}
		if v.OrgID != claims.OrgID {
			writeError(w, http.StatusForbidden, "cannot register a vehicle for another organization", nil)
			return
		}
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}

	if err := h.Dir.SaveVehicle(r.Context(), v); err != nil {
		writeDirectoryError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	if err := h.Dir.DeleteVehicle(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDirectoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Dir.ListUsers(r.Context())
	if err != nil {
		writeDirectoryError(w, err)
		return
	}
	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required", nil)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to hash password", err)
		return
	}

	user := directory.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Username:     req.Username,
		PasswordHash: hash,
		Role:         req.Role,
		OrgID:        req.OrgID,
		StationID:    req.StationID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.Dir.CreateUser(r.Context(), user); err != nil {
		writeDirectoryError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(user))
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.Dir.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDirectoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// HELPERS
// =============================================================================

// inScope reports whether the caller may see a record owned by the given
// organization and station.
func (h *Handler) inScope(r *http.Request, orgID, stationID string) bool {
	claims := auth.FromContext(r.Context())
	switch claims.Role {
	case directory.RoleFleetManager:
		return claims.OrgID == orgID
	case directory.RoleFuelStation:
		return claims.StationID == stationID
	default:
		return true
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeLedgerError maps the ledger error taxonomy to HTTP statuses.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation failed", err)
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found", err)
	case errors.Is(err, ledger.ErrNothingToInvoice):
		writeError(w, http.StatusUnprocessableEntity, "nothing to invoice", err)
	case errors.Is(err, ledger.ErrInvalidState):
		writeError(w, http.StatusConflict, "entity not in required state", err)
	case errors.Is(err, ledger.ErrConflict):
		writeError(w, http.StatusConflict, "concurrent modification, retry", err)
	case errors.Is(err, ledger.ErrIntegrity):
		writeError(w, http.StatusInternalServerError, "ledger integrity violation", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}

func writeDirectoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, directory.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found", err)
	case errors.Is(err, directory.ErrDuplicate):
		writeError(w, http.StatusConflict, "duplicate", err)
	case errors.Is(err, directory.ErrFeeOutOfBounds):
		writeError(w, http.StatusBadRequest, "fee percentage out of bounds", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}
