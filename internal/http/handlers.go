package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"tracker/internal/auth"
	applog "tracker/internal/log"
	"tracker/internal/session"
	"tracker/internal/storage"
)

const unavailableMessage = "The transaction database is currently unavailable. Please try again later."

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	s.renderDashboard(w, r, http.StatusOK, dashboardView{Form: defaultTransactionForm()})
}

// renderDashboard loads a fresh snapshot and renders the main page. When the
// store cannot be read the rest of the page is not rendered.
func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, status int, base dashboardView) {
	sess := session.FromContext(r.Context())

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	ov, err := s.svc.Overview(ctx)
	if err != nil {
		s.renderStoreError(w, r, err, applog.OpList)
		return
	}

	view := newDashboardView(ov, base.Form, sess.PopFlashes())
	view.FormError = base.FormError
	view.DeleteID = base.DeleteID
	view.DeleteError = base.DeleteError
	s.sessions.Save(sess)

	s.render(w, r, status, "index.html", view)
}

// renderStoreError shows the unavailable page and halts the request.
func (s *Server) renderStoreError(w http.ResponseWriter, r *http.Request, err error, op string) {
	applog.FromContext(r.Context()).ErrorContext(r.Context(), "Transaction store failure",
		applog.FieldError, err,
		applog.FieldOperation, op)

	status := http.StatusInternalServerError
	if errors.Is(err, storage.ErrUnavailable) {
		status = http.StatusServiceUnavailable
	}
	s.render(w, r, status, "error.html", errorView{
		Title:   "Storage unavailable",
		Message: unavailableMessage,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead, http.MethodPost) {
		return
	}
	sess := session.FromContext(r.Context())

	if r.Method != http.MethodPost {
		if auth.Allowed(sess) {
			redirect(w, r, "/")
			return
		}
		view := loginView{Flashes: sess.PopFlashes()}
		s.sessions.Save(sess)
		s.render(w, r, http.StatusOK, "login.html", view)
		return
	}

	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "login.html", loginView{Error: "Invalid request."})
		return
	}

	logger := applog.FromContext(r.Context()).WithComponent(applog.ComponentAuth)
	if err := s.gate.Authenticate(sess, r.PostForm.Get("password")); err != nil {
		logger.WarnContext(r.Context(), "Login failed",
			applog.FieldOperation, applog.OpLogin,
			applog.FieldClientIP, clientIP(r))
		s.render(w, r, http.StatusUnauthorized, "login.html", loginView{Error: "Incorrect password"})
		return
	}

	// A fresh ID once the session becomes privileged.
	s.sessions.Renew(w, sess)
	sess.AddFlash(session.FlashSuccess, "Login successful!")
	s.sessions.Save(sess)

	logger.InfoContext(r.Context(), "Login successful", applog.FieldOperation, applog.OpLogin)
	redirect(w, r, "/")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	sess := session.FromContext(r.Context())
	s.sessions.End(w, sess)

	applog.FromContext(r.Context()).WithComponent(applog.ComponentAuth).
		InfoContext(r.Context(), "Logged out", applog.FieldOperation, applog.OpLogout)
	redirect(w, r, "/login")
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if err := r.ParseForm(); err != nil {
		s.renderDashboard(w, r, http.StatusBadRequest, dashboardView{
			Form:      defaultTransactionForm(),
			FormError: "Invalid request.",
		})
		return
	}

	form := readTransactionForm(r)
	tx, err := form.Transaction()
	if err == nil {
		ctx, cancel := s.storeContext(r.Context())
		var id int64
		id, err = s.svc.Record(ctx, tx)
		cancel()
		if err == nil {
			sess := session.FromContext(r.Context())
			sess.AddFlash(session.FlashSuccess, fmt.Sprintf("%s added!", tx.Type.Label()))
			s.sessions.Save(sess)

			applog.FromContext(r.Context()).InfoContext(r.Context(), "Transaction recorded",
				applog.NewFields().
					WithTransaction(id, tx.Type.String(), tx.Category, tx.Amount.StringFixed(2)).
					WithOperation(applog.OpCreate).
					ToSlice()...)
			redirect(w, r, "/")
			return
		}
	}

	if isInvalidInput(err) {
		s.renderDashboard(w, r, http.StatusUnprocessableEntity, dashboardView{
			Form:      form,
			FormError: userMessage(err),
		})
		return
	}
	s.renderStoreError(w, r, err, applog.OpCreate)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if err := r.ParseForm(); err != nil {
		s.renderDashboard(w, r, http.StatusBadRequest, dashboardView{
			Form:        defaultTransactionForm(),
			DeleteError: "Invalid request.",
		})
		return
	}

	id, err := parseDeleteID(r)
	if err == nil {
		ctx, cancel := s.storeContext(r.Context())
		err = s.svc.Remove(ctx, id)
		cancel()
	}
	if err != nil {
		if isInvalidInput(err) {
			s.renderDashboard(w, r, http.StatusUnprocessableEntity, dashboardView{
				Form:        defaultTransactionForm(),
				DeleteID:    sanitizeInput(r.PostForm.Get("id")),
				DeleteError: userMessage(err),
			})
			return
		}
		s.renderStoreError(w, r, err, applog.OpDelete)
		return
	}

	sess := session.FromContext(r.Context())
	sess.AddFlash(session.FlashWarning, "Deleted transaction with ID "+strconv.FormatInt(id, 10))
	s.sessions.Save(sess)

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Transaction delete requested",
		applog.FieldTransactionID, id,
		applog.FieldOperation, applog.OpDelete)
	redirect(w, r, "/")
}
