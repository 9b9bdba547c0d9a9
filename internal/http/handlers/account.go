package handlers

import "net/http"

// Account returns the authenticated account including its credit balance.
func (a *App) Account(w http.ResponseWriter, r *http.Request) {
	accountID := a.currentAccountID(r)
	if accountID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}
	account, err := a.Accounts.GetByID(r.Context(), accountID)
	if err != nil {
		a.error(w, http.StatusUnauthorized, "unauthorized", "unknown account")
		return
	}
	a.json(w, http.StatusOK, toAccountPayload(*account))
}
