package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authapp "github.com/turtacn/flame-data/internal/application/auth"
	collectionapp "github.com/turtacn/flame-data/internal/application/collection"
	reactionapp "github.com/turtacn/flame-data/internal/application/reaction"
	speciesapp "github.com/turtacn/flame-data/internal/application/species"
	"github.com/turtacn/flame-data/internal/config"
	domaincoll "github.com/turtacn/flame-data/internal/domain/collection"
	"github.com/turtacn/flame-data/internal/domain/identity"
	"github.com/turtacn/flame-data/internal/domain/reaction"
	"github.com/turtacn/flame-data/internal/domain/species"
	"github.com/turtacn/flame-data/internal/domain/user"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flame-data/internal/interfaces/http/handlers"
	"github.com/turtacn/flame-data/internal/interfaces/http/middleware"
	"github.com/turtacn/flame-data/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const sessionCookie = "flame_session"

// stubAuth accepts the token "tok-<id>" for users 1 and 2.
type stubAuth struct {
	loggedOut []string
}

var testUsers = map[string]*user.User{
	"tok-1": {ID: 1, Email: "one@example.org"},
	"tok-2": {ID: 2, Email: "two@example.org"},
}

func (s *stubAuth) Register(_ context.Context, email, _ string) (*authapp.Session, error) {
	if email == "one@example.org" {
		return nil, errors.New(errors.ErrCodeUserAlreadyExists, "A user with this email already exists")
	}
	return &authapp.Session{User: &user.User{ID: 3, Email: email}, Token: "tok-3", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (s *stubAuth) Login(_ context.Context, email, password string) (*authapp.Session, error) {
	if email != "one@example.org" || password != "pw" {
		return nil, errors.Unauthorized()
	}
	return &authapp.Session{User: testUsers["tok-1"], Token: "tok-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (s *stubAuth) Logout(_ context.Context, token string) error {
	s.loggedOut = append(s.loggedOut, token)
	return nil
}

func (s *stubAuth) Authenticate(_ context.Context, token string) (*user.User, error) {
	if u, ok := testUsers[token]; ok {
		return u, nil
	}
	return nil, errors.Unauthorized()
}

type stubSpecies struct {
	lastFilter identity.FormulaFilter
	lastUser   int64
}

func (s *stubSpecies) Search(_ context.Context, f identity.FormulaFilter) ([]*species.Connectivity, error) {
	s.lastFilter = f
	return []*species.Connectivity{{ID: 1, Formula: "CH4"}, {ID: 2, Formula: "C2H6"}}, nil
}

func (s *stubSpecies) Hash(context.Context, identity.Key) (identity.Hash, error) {
	return identity.Hash{}, nil
}

func (s *stubSpecies) Lookup(_ context.Context, k identity.Key) (*species.Connectivity, error) {
	if k.String() == "C" {
		return &species.Connectivity{ID: 1, Formula: "CH4"}, nil
	}
	return nil, errors.New(errors.ErrCodeNotFound, "No species connectivity was found.")
}

func (s *stubSpecies) Add(ctx context.Context, smi string) (*speciesapp.AddResult, error) {
	s.lastUser = speciesapp.UserIDFromContext(ctx)
	if smi == "bad" {
		return nil, errors.New(errors.ErrCodeMalformedIdentifier, "Cannot parse SMILES bad")
	}
	return &speciesapp.AddResult{ConnID: 9, Created: true}, nil
}

func (s *stubSpecies) AddBatch(ctx context.Context, smiles []string) []*speciesapp.ItemResult {
	out := make([]*speciesapp.ItemResult, 0, len(smiles))
	for _, smi := range smiles {
		if res, err := s.Add(ctx, smi); err != nil {
			out = append(out, &speciesapp.ItemResult{Smiles: smi, Status: 400, Error: errors.PublicMessage(err)})
		} else {
			out = append(out, &speciesapp.ItemResult{Smiles: smi, ConnID: res.ConnID, Created: true, Status: 201})
		}
	}
	return out
}

func (s *stubSpecies) Get(_ context.Context, id int64) ([]*species.Isomer, error) {
	if id != 1 {
		return nil, errors.NotFound(id)
	}
	return []*species.Isomer{{}}, nil
}

func (s *stubSpecies) Delete(context.Context, int64) error { return nil }

func (s *stubSpecies) UpdateGeometry(_ context.Context, _ int64, xyz string) error {
	if xyz == "wrong" {
		return errors.New(errors.ErrCodeIdentityMismatch, "Geometry does not match the stored AMChI")
	}
	return nil
}

type stubReaction struct{}

func (stubReaction) Search(context.Context, identity.FormulaFilter) ([]*reaction.Connectivity, error) {
	return []*reaction.Connectivity{}, nil
}

func (stubReaction) Lookup(_ context.Context, r, p identity.Key) (*reaction.Connectivity, error) {
	return &reaction.Connectivity{ID: 4}, nil
}

func (stubReaction) Add(_ context.Context, smi string) (*speciesapp.AddResult, error) {
	if !strings.Contains(smi, ">>") {
		return nil, errors.New(errors.ErrCodeNotAReaction, "Not a reaction SMILES string")
	}
	return &speciesapp.AddResult{ConnID: 4, Created: true}, nil
}

func (stubReaction) Get(_ context.Context, id int64) (*reactionapp.Details, error) {
	return &reactionapp.Details{Connectivity: &reaction.Connectivity{ID: id}}, nil
}

func (stubReaction) Delete(context.Context, int64) error                   { return nil }
func (stubReaction) UpdateTSGeometry(context.Context, int64, string) error { return nil }

type defaultCall struct {
	userID int64
	kind   collectionapp.Kind
	connID int64
}

// stubCollections owns collection 10 for user 1 only.
type stubCollections struct {
	defaults   []defaultCall
	added      []int64
	defaultErr error
}

func (s *stubCollections) owned(userID, id int64) error {
	if id != 10 || userID != 1 {
		return errors.Newf(errors.ErrCodeCollectionNotFound, "No collection with ID %d was found.", id)
	}
	return nil
}

func (s *stubCollections) List(_ context.Context, userID int64) ([]*domaincoll.Overview, error) {
	return []*domaincoll.Overview{{Collection: domaincoll.Collection{ID: 10, Name: "My Data", UserID: userID}}}, nil
}

func (s *stubCollections) Create(_ context.Context, userID int64, name string) (*domaincoll.Collection, error) {
	if name == "My Data" {
		return nil, errors.New(errors.ErrCodeCollectionExists, "a collection with this name already exists")
	}
	return &domaincoll.Collection{ID: 11, Name: name, UserID: userID}, nil
}

func (s *stubCollections) Get(_ context.Context, userID, id int64) (*domaincoll.Contents, error) {
	if err := s.owned(userID, id); err != nil {
		return nil, err
	}
	return &domaincoll.Contents{Name: "My Data"}, nil
}

func (s *stubCollections) Delete(_ context.Context, userID, id int64) error {
	return s.owned(userID, id)
}

func (s *stubCollections) Add(_ context.Context, userID, id int64, _ collectionapp.Kind, connIDs []int64) error {
	if err := s.owned(userID, id); err != nil {
		return err
	}
	s.added = append(s.added, connIDs...)
	return nil
}

func (s *stubCollections) Remove(_ context.Context, userID, id int64, _ collectionapp.Kind, _ []int64) error {
	return s.owned(userID, id)
}

func (s *stubCollections) AddToDefault(_ context.Context, userID int64, kind collectionapp.Kind, connID int64) error {
	s.defaults = append(s.defaults, defaultCall{userID, kind, connID})
	return s.defaultErr
}

func (s *stubCollections) Export(_ context.Context, userID, id int64) (*collectionapp.ExportResult, error) {
	if err := s.owned(userID, id); err != nil {
		return nil, err
	}
	return nil, errors.New(errors.ErrCodeFeatureDisabled, "Export storage is not configured")
}

type fixture struct {
	engine      *gin.Engine
	auth        *stubAuth
	species     *stubSpecies
	collections *stubCollections
}

func newFixture(checkers ...handlers.HealthChecker) *fixture {
	f := &fixture{auth: &stubAuth{}, species: &stubSpecies{}, collections: &stubCollections{}}
	log := logging.NewNopLogger()
	authCfg := config.AuthConfig{CookieName: sessionCookie}
	f.engine = NewRouter(RouterConfig{
		AuthHandler:       handlers.NewAuthHandler(f.auth, authCfg),
		SpeciesHandler:    handlers.NewSpeciesHandler(f.species, f.collections, log),
		ReactionHandler:   handlers.NewReactionHandler(stubReaction{}, f.collections, log),
		CollectionHandler: handlers.NewCollectionHandler(f.collections),
		HealthHandler:     handlers.NewHealthHandler("test", checkers...),
		AuthMiddleware:    middleware.NewAuthMiddleware(f.auth, sessionCookie, log),
		Logger:            log,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
	})
	return f
}

func (f *fixture) do(method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func contents(t *testing.T, w *httptest.ResponseRecorder) json.RawMessage {
	t.Helper()
	var env struct {
		Contents json.RawMessage `json:"contents"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env.Contents
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env handlers.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env.Error
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(handlers.CheckFunc{Component: "postgres", Fn: func(context.Context) error { return nil }})
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/healthz", "", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/readyz", "", "").Code)
	assert.Equal(t, "# metrics", f.do(http.MethodGet, "/metrics", "", "").Body.String())

	f = newFixture(handlers.CheckFunc{Component: "redis", Fn: func(context.Context) error {
		return errors.New(errors.ErrCodeCacheError, "down")
	}})
	w := f.do(http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis"`)
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodGet, "/api/nothing", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not found", errorMessage(t, w))
}

func TestSpeciesSearch_Public(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodGet, "/api/species/connectivity?formula=CH4&partial", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, identity.FormulaFilter{Formula: "CH4", Partial: true}, f.species.lastFilter)

	var out []species.Connectivity
	require.NoError(t, json.Unmarshal(contents(t, w), &out))
	assert.Len(t, out, 2)

	f.do(http.MethodGet, "/api/species/connectivity", "", "")
	assert.Equal(t, identity.FormulaFilter{}, f.species.lastFilter)
}

func TestSpeciesGet(t *testing.T) {
	f := newFixture()
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/species/connectivity/1", "", "").Code)

	w := f.do(http.MethodGet, "/api/species/connectivity/2", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, errorMessage(t, w))

	w = f.do(http.MethodGet, "/api/species/connectivity/abc", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSpeciesLookup(t *testing.T) {
	f := newFixture()
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/species/lookup?key=C", "", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/species/lookup?key=CC&type=smiles", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/species/lookup?key=C&type=cas", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/species/lookup", "", "").Code)
}

func TestSpeciesAdd(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodPost, "/api/species/connectivity", `{"smiles":"CCO"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", errorMessage(t, w))

	w = f.do(http.MethodPost, "/api/species/connectivity", `{"smiles":"CCO"}`, "tok-1")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"conn_id":9,"created":true}`, string(contents(t, w)))
	assert.Equal(t, int64(1), f.species.lastUser)
	assert.Equal(t, []defaultCall{{1, collectionapp.KindSpecies, 9}}, f.collections.defaults)

	w = f.do(http.MethodPost, "/api/species/connectivity", `{"smiles":"bad"}`, "tok-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Cannot parse SMILES bad", errorMessage(t, w))

	w = f.do(http.MethodPost, "/api/species/connectivity", `{"smiles":`, "tok-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdd_DefaultCollectionFailureKeepsCreated(t *testing.T) {
	f := newFixture()
	f.collections.defaultErr = errors.New(errors.ErrCodeDatabaseError, "collection insert failed")

	w := f.do(http.MethodPost, "/api/species/connectivity", `{"smiles":"CCO"}`, "tok-1")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"conn_id":9,"created":true}`, string(contents(t, w)))

	w = f.do(http.MethodPost, "/api/species/connectivity/batch", `{"smilesList":["C"]}`, "tok-1")
	require.Equal(t, http.StatusCreated, w.Code)
	var items []speciesapp.ItemResult
	require.NoError(t, json.Unmarshal(contents(t, w), &items))
	require.Len(t, items, 1)
	assert.Equal(t, 201, items[0].Status)
	assert.Empty(t, items[0].Error)

	w = f.do(http.MethodPost, "/api/reaction/connectivity", `{"smiles":"C.[OH]>>[CH3].O"}`, "tok-1")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, f.collections.defaults, 3)
}

func TestSpeciesAddBatch(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodPost, "/api/species/connectivity/batch", `{"smilesList":["C","bad","O"]}`, "tok-2")
	require.Equal(t, http.StatusCreated, w.Code)

	var items []speciesapp.ItemResult
	require.NoError(t, json.Unmarshal(contents(t, w), &items))
	require.Len(t, items, 3)
	assert.Equal(t, 201, items[0].Status)
	assert.Equal(t, 400, items[1].Status)
	assert.NotEmpty(t, items[1].Error)
	assert.Len(t, f.collections.defaults, 2)
}

func TestSpeciesGeometryAndDelete(t *testing.T) {
	f := newFixture()
	assert.Equal(t, http.StatusNoContent, f.do(http.MethodPut, "/api/species/3", `{"geometry":"1\nx\nC 0 0 0"}`, "tok-1").Code)
	assert.Equal(t, http.StatusUnsupportedMediaType, f.do(http.MethodPut, "/api/species/3", `{"geometry":"wrong"}`, "tok-1").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodDelete, "/api/species/connectivity/3", "", "").Code)

	w := f.do(http.MethodDelete, "/api/species/connectivity/3", "", "tok-1")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestReactionRoutes(t *testing.T) {
	f := newFixture()
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/reaction/connectivity", "", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/reaction/connectivity/4", "", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/reaction/lookup?reactants=C.[OH]&products=[CH3].O", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/reaction/lookup?reactants=C", "", "").Code)

	w := f.do(http.MethodPost, "/api/reaction/connectivity", `{"smiles":"CCO"}`, "tok-1")
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Equal(t, "Not a reaction SMILES string", errorMessage(t, w))

	w = f.do(http.MethodPost, "/api/reaction/connectivity", `{"smiles":"C.[OH]>>[CH3].O"}`, "tok-1")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []defaultCall{{1, collectionapp.KindReaction, 4}}, f.collections.defaults)

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodPut, "/api/reaction/ts/7", `{"geometry":"g"}`, "tok-1").Code)
	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/api/reaction/connectivity/4", "", "tok-1").Code)
}

func TestCollectionRoutes(t *testing.T) {
	f := newFixture()

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/collection", "", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/collection", "", "tok-1").Code)

	w := f.do(http.MethodPost, "/api/collection", `{"name":"work"}`, "tok-1")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":11,"name":"work","user_id":1}`, string(contents(t, w)))
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/collection", `{"name":"My Data"}`, "tok-1").Code)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/collection/10", "", "tok-1").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/collection/10", "", "tok-2").Code, "owner scoped")
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/collection/x", "", "tok-1").Code)

	assert.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/collection/species/10", `{"conn_ids":[1,2]}`, "tok-1").Code)
	assert.Equal(t, []int64{1, 2}, f.collections.added)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/collection/reaction/10", `{"conn_ids":[]}`, "tok-1").Code)
	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/api/collection/reaction/10", `{"conn_ids":[4]}`, "tok-1").Code)
	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/api/collection/10", "", "tok-1").Code)

	assert.Equal(t, http.StatusNotImplemented, f.do(http.MethodPost, "/api/collection/10/export", "", "tok-1").Code)
}

func TestAuthRoutes(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodPost, "/api/login", `{"email":"one@example.org","password":"pw"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1,"email":"one@example.org"}`, string(contents(t, w)))
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookie, cookies[0].Name)
	assert.Equal(t, "tok-1", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/api/login", `{"email":"one@example.org","password":"x"}`, "").Code)

	w = f.do(http.MethodPost, "/api/register", `{"email":"one@example.org","password":"pw"}`, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "A user with this email already exists", errorMessage(t, w))
	assert.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/register", `{"email":"new@example.org","password":"pw"}`, "").Code)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/@me", "", "").Code)
	w = f.do(http.MethodGet, "/api/@me", "", "tok-2")
	assert.JSONEq(t, `{"id":2,"email":"two@example.org"}`, string(contents(t, w)))

	w = f.do(http.MethodPost, "/api/logout", "", "tok-2")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"tok-2"}, f.auth.loggedOut)
}
