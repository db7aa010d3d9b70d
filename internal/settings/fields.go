package settings

import "realworld-settings/internal/domain"

func (f *Form) SetImageURL(v string) {
	f.mu.Lock()
	f.draft.ImageURL = v
	f.mu.Unlock()
}

func (f *Form) SetUsername(v string) {
	f.mu.Lock()
	f.draft.Username = v
	f.mu.Unlock()
}

func (f *Form) SetBio(v string) {
	f.mu.Lock()
	f.draft.Bio = v
	f.mu.Unlock()
}

func (f *Form) SetEmail(v string) {
	f.mu.Lock()
	f.draft.Email = v
	f.mu.Unlock()
}

func (f *Form) SetNewPassword(v string) {
	f.mu.Lock()
	f.draft.NewPassword = v
	f.mu.Unlock()
}

// Apply replaces all five fields at once, as a posted form does.
func (f *Form) Apply(d domain.ProfileDraft) {
	f.mu.Lock()
	f.draft = d
	f.mu.Unlock()
}
