// Package settings implements the user-settings form: it loads the current
// user's profile, holds the editable draft and submits updates back to the
// profile API.
package settings

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"realworld-settings/internal/domain"
	"realworld-settings/internal/profileapi"
)

var (
	// ErrRequestInFlight is returned when a fetch or update is already running.
	ErrRequestInFlight = errors.New("a profile request is already in flight")
	// ErrFormClosed is returned once the form has been torn down.
	ErrFormClosed = errors.New("settings form closed")
)

const DefaultLoginPath = "/login"

// CredentialStore is the session-scoped storage the form reads its
// credential from and clears on logout.
type CredentialStore interface {
	Credential(ctx context.Context) (domain.Credential, bool)
	Clear(ctx context.Context) error
}

// Navigator performs a full page redirect.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (fn NavigatorFunc) Navigate(path string) { fn(path) }

type Options struct {
	LoginPath string
	Logger    logrus.FieldLogger
}

// Form is the profile settings form. It allows one request in flight at a
// time; Close and Logout cancel it and discard its result.
type Form struct {
	api       profileapi.API
	store     CredentialStore
	nav       Navigator
	loginPath string
	logger    logrus.FieldLogger

	lifetime context.Context
	cancel   context.CancelFunc

	mu       sync.Mutex
	draft    domain.ProfileDraft
	remote   *domain.Profile
	status   domain.UpdateStatus
	inflight bool
	closed   bool
}

func New(api profileapi.API, store CredentialStore, nav Navigator, opts Options) *Form {
	if opts.LoginPath == "" {
		opts.LoginPath = DefaultLoginPath
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if nav == nil {
		nav = NavigatorFunc(func(string) {})
	}
	lifetime, cancel := context.WithCancel(context.Background())
	return &Form{
		api:       api,
		store:     store,
		nav:       nav,
		loginPath: opts.LoginPath,
		logger:    opts.Logger.WithField("component", "settings"),
		lifetime:  lifetime,
		cancel:    cancel,
	}
}

// Mount loads the current profile into the draft. Without a credential no
// request is made. A failed fetch leaves the draft untouched and is only logged.
func (f *Form) Mount(ctx context.Context) error {
	token, ok := f.store.Credential(ctx)
	if !ok {
		return nil
	}

	opCtx, end, err := f.begin(ctx)
	if err != nil {
		return err
	}
	defer end()

	profile, err := f.api.GetCurrentUser(opCtx, token)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrFormClosed
	}
	if err != nil {
		f.logger.WithError(err).Error("error fetching user data")
		return err
	}

	f.remote = profile
	f.draft = domain.DraftFromProfile(*profile)
	return nil
}

// Submit sends the draft to the update endpoint. API failures are absorbed
// into Status; the returned error only reports a busy or closed form.
func (f *Form) Submit(ctx context.Context) error {
	opCtx, end, err := f.begin(ctx)
	if err != nil {
		return err
	}
	defer end()

	f.mu.Lock()
	draft := f.draft
	f.mu.Unlock()

	token, ok := f.store.Credential(ctx)
	if !ok {
		f.logger.Warn("no session credential; unauthorized: please check your credentials")
		return nil
	}

	profile, err := f.api.UpdateCurrentUser(opCtx, token, draft.Update())

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrFormClosed
	}
	if err != nil {
		f.recordFailure(err)
		return nil
	}

	f.remote = profile
	f.draft = domain.DraftFromProfile(*profile)
	f.status = domain.UpdateSuccess()
	f.logger.WithField("username", profile.Username).Info("settings updated successfully")
	return nil
}

// recordFailure logs an update failure and sets the user-visible status.
// 401 and 422 are logged only. Must be called with f.mu held.
func (f *Form) recordFailure(err error) {
	failure, ok := profileapi.AsFailure(err)
	if !ok {
		f.logger.WithError(err).Error("update settings")
		f.status = domain.UpdateFailure()
		return
	}

	log := f.logger.WithField("kind", failure.Kind.String())
	if failure.StatusCode != 0 {
		log = log.WithFields(logrus.Fields{
			"status":  failure.StatusCode,
			"payload": string(failure.Payload),
		})
	}

	switch failure.Kind {
	case profileapi.FailureUnauthorized:
		log.Error("unauthorized: please check your credentials")
	case profileapi.FailureValidation:
		log.WithField("errors", failure.Validation).Error("update rejected by validation")
	case profileapi.FailureStatus, profileapi.FailureDecode:
		log.WithError(failure.Err).Error("an unexpected error occurred")
		f.status = domain.UpdateFailure()
	case profileapi.FailureNoResponse:
		log.WithError(failure.Err).Error("no response received from the server")
		f.status = domain.UpdateFailure()
	case profileapi.FailureRequest:
		log.WithError(failure.Err).Error("error setting up the request")
		f.status = domain.UpdateFailure()
	default:
		log.WithError(failure).Error("unknown update failure")
		f.status = domain.UpdateFailure()
	}
}

// Logout cancels any in-flight request, clears the whole session and
// redirects to the login page. The form is closed afterwards.
func (f *Form) Logout(ctx context.Context) error {
	f.Close()

	err := f.store.Clear(ctx)
	if err != nil {
		f.logger.WithError(err).Error("clear session")
	}
	f.nav.Navigate(f.loginPath)
	return err
}

// Close tears the form down. In-flight requests are cancelled and their
// results dropped.
func (f *Form) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.cancel()
}

func (f *Form) begin(ctx context.Context) (context.Context, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, nil, ErrFormClosed
	}
	if f.inflight {
		return nil, nil, ErrRequestInFlight
	}
	f.inflight = true

	opCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(f.lifetime, cancel)
	end := func() {
		stop()
		cancel()
		f.mu.Lock()
		f.inflight = false
		f.mu.Unlock()
	}
	return opCtx, end, nil
}

func (f *Form) Draft() domain.ProfileDraft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

func (f *Form) Status() domain.UpdateStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Remote returns the last profile received from the API, if any.
func (f *Form) Remote() (domain.Profile, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.remote == nil {
		return domain.Profile{}, false
	}
	return *f.remote, true
}

func (f *Form) InFlight() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inflight
}
