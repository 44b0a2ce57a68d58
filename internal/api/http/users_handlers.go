package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mind-engage/drivequiz/internal/auth"
)

// UserUpserter creates or updates accounts.
type UserUpserter interface {
	Upsert(ctx context.Context, username, password, role string) (auth.User, error)
}

type userRow struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"` // usually "student"
}

// POST /api/users  [ {"username":..., "password":..., "role":...}, ... ]
func BulkUpsertUsersHandler(users UserUpserter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows []userRow
		if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			http.Error(w, "expected JSON array", http.StatusBadRequest)
			return
		}
		out := make([]auth.User, 0, len(rows))
		for _, row := range rows {
			if row.Role == "" {
				row.Role = "student"
			}
			u, err := users.Upsert(r.Context(), row.Username, row.Password, row.Role)
			if err != nil {
				http.Error(w, row.Username+": "+err.Error(), http.StatusBadRequest)
				return
			}
			out = append(out, u)
		}
		writeJSON(w, http.StatusOK, out)
	}
}
