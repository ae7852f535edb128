package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/serverhealth/core/telegram/state"
	"github.com/m3rciful/serverhealth/core/telegram/ui"
	"github.com/m3rciful/serverhealth/internal/domain"
)

const owner int64 = 42

type fakeCreator struct {
	mu      sync.Mutex
	created []domain.NewServer
	errs    []error
}

func (f *fakeCreator) CreateServer(_ context.Context, srv domain.NewServer) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return 0, err
		}
	}
	f.created = append(f.created, srv)
	return int64(len(f.created)), nil
}

func newWizard(t *testing.T, store state.Store, creator ServerCreator) *Wizard {
	t.Helper()
	return New(store, creator, Options{
		OnComplete: func(context.Context) []ui.Message { return []ui.Message{ui.Text("servers menu")} },
	})
}

func submitAll(t *testing.T, w *Wizard, answers ...string) Outcome {
	t.Helper()
	var out Outcome
	for _, a := range answers {
		var err error
		out, err = w.Submit(context.Background(), owner, a)
		require.NoError(t, err)
		require.True(t, out.Handled, "answer %q not handled", a)
	}
	return out
}

func texts(msgs []ui.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Text)
	}
	return out
}

func TestHappyPathWithSkips(t *testing.T) {
	store := state.NewMemoryStore(nil)
	creator := &fakeCreator{}
	w := newWizard(t, store, creator)
	ctx := context.Background()

	msgs, err := w.Start(ctx, owner)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, StepName.Prompt(), msgs[0].Text)
	assert.Equal(t, CancelAction, msgs[0].Keyboard[0][0].Action)

	out := submitAll(t, w, "db1", "10.0.0.5", "-", "root", "-", "-")

	require.Len(t, creator.created, 1)
	assert.Equal(t, domain.NewServer{
		Name: "db1", Host: "10.0.0.5", SSHUser: "root", SSHPort: 22,
	}, creator.created[0])
	assert.Equal(t, []string{"Server added.", "servers menu"}, texts(out.Messages))

	active, err := w.Active(ctx, owner)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestAllFieldsFilled(t *testing.T) {
	creator := &fakeCreator{}
	w := newWizard(t, state.NewMemoryStore(nil), creator)
	_, err := w.Start(context.Background(), owner)
	require.NoError(t, err)

	submitAll(t, w, "  web  ", "web.example.com", "frontend box", "deploy", "s3cret", "2222")

	desc, pass := "frontend box", "s3cret"
	assert.Equal(t, domain.NewServer{
		Name: "web", Host: "web.example.com", Description: &desc,
		SSHUser: "deploy", SSHPassword: &pass, SSHPort: 2222,
	}, creator.created[0])
}

func TestPromptsFollowOrder(t *testing.T) {
	w := newWizard(t, state.NewMemoryStore(nil), &fakeCreator{})
	ctx := context.Background()
	_, err := w.Start(ctx, owner)
	require.NoError(t, err)

	answers := []string{"db1", "h", "-", "root", "-"}
	for i, a := range answers {
		out, err := w.Submit(ctx, owner, a)
		require.NoError(t, err)
		assert.Equal(t, Order[i+1].Prompt(), out.Messages[0].Text)

		s, err := w.Load(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, Order[i+1], s.Step)
		assert.Len(t, s.Data, i+1)
	}
}

func TestSkipRejectedOnRequiredSteps(t *testing.T) {
	ctx := context.Background()
	prefixes := map[Step][]string{
		StepName:    nil,
		StepHost:    {"db1"},
		StepSSHUser: {"db1", "h", "-"},
	}
	for step, prefix := range prefixes {
		t.Run(string(step), func(t *testing.T) {
			w := newWizard(t, state.NewMemoryStore(nil), &fakeCreator{})
			_, err := w.Start(ctx, owner)
			require.NoError(t, err)
			submitAll(t, w, prefix...)

			for _, bad := range []string{"-", "SKIP", "Пропустить", "   "} {
				out, err := w.Submit(ctx, owner, bad)
				require.NoError(t, err)
				require.True(t, out.Handled)
				assert.Contains(t, out.Messages[0].Text, step.Prompt())

				s, err := w.Load(ctx, owner)
				require.NoError(t, err)
				assert.Equal(t, step, s.Step)
				assert.NotContains(t, s.Data, step)
			}
		})
	}
}

func TestSkipAcceptedOnOptionalSteps(t *testing.T) {
	for _, st := range Order {
		switch st {
		case StepDescription, StepSSHPassword, StepSSHPort:
			assert.True(t, st.Optional(), st)
		default:
			assert.False(t, st.Optional(), st)
		}
	}
}

func TestPortValidation(t *testing.T) {
	ctx := context.Background()
	cases := map[string]struct {
		input string
		ok    bool
		port  int
	}{
		"min":        {"1", true, 1},
		"max":        {"65535", true, 65535},
		"skip":       {"-", true, 22},
		"skip word":  {"skip", true, 22},
		"zero":       {"0", false, 0},
		"too big":    {"65536", false, 0},
		"negative":   {"-5", false, 0},
		"not number": {"ssh", false, 0},
		"trailing":   {"22abc", false, 0},
		"fraction":   {"22.5", false, 0},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			creator := &fakeCreator{}
			w := newWizard(t, state.NewMemoryStore(nil), creator)
			_, err := w.Start(ctx, owner)
			require.NoError(t, err)
			submitAll(t, w, "db1", "h", "-", "root", "-")

			out, err := w.Submit(ctx, owner, tc.input)
			require.NoError(t, err)
			require.True(t, out.Handled)

			if !tc.ok {
				assert.Empty(t, creator.created)
				assert.Contains(t, out.Messages[0].Text, "Invalid port")
				s, err := w.Load(ctx, owner)
				require.NoError(t, err)
				assert.Equal(t, StepSSHPort, s.Step)
				return
			}
			require.Len(t, creator.created, 1)
			assert.Equal(t, tc.port, creator.created[0].SSHPort)
		})
	}
}

func TestCancelAtAnyStep(t *testing.T) {
	ctx := context.Background()
	answers := []string{"db1", "h", "-", "root", "-"}
	for i := 0; i <= len(answers); i++ {
		w := newWizard(t, state.NewMemoryStore(nil), &fakeCreator{})
		_, err := w.Start(ctx, owner)
		require.NoError(t, err)
		submitAll(t, w, answers[:i]...)

		require.NoError(t, w.Cancel(ctx, owner))

		out, err := w.Submit(ctx, owner, "anything")
		require.NoError(t, err)
		assert.False(t, out.Handled)
		assert.Empty(t, out.Messages)
	}
}

func TestCancelWithoutSession(t *testing.T) {
	w := newWizard(t, state.NewMemoryStore(nil), &fakeCreator{})
	assert.NoError(t, w.Cancel(context.Background(), owner))
}

func TestSubmitWithoutSessionIsNoop(t *testing.T) {
	creator := &fakeCreator{}
	w := newWizard(t, state.NewMemoryStore(nil), creator)
	out, err := w.Submit(context.Background(), owner, "db1")
	require.NoError(t, err)
	assert.False(t, out.Handled)
	assert.Empty(t, creator.created)
}

func TestStartOverwritesStaleSession(t *testing.T) {
	ctx := context.Background()
	w := newWizard(t, state.NewMemoryStore(nil), &fakeCreator{})
	_, err := w.Start(ctx, owner)
	require.NoError(t, err)
	submitAll(t, w, "db1", "h")

	_, err = w.Start(ctx, owner)
	require.NoError(t, err)
	s, err := w.Load(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, StepName, s.Step)
	assert.Empty(t, s.Data)
}

func TestDuplicateNameResetsToNameStep(t *testing.T) {
	ctx := context.Background()
	creator := &fakeCreator{errs: []error{fmt.Errorf("create: %w", domain.ErrDuplicateName)}}
	w := newWizard(t, state.NewMemoryStore(nil), creator)
	_, err := w.Start(ctx, owner)
	require.NoError(t, err)

	out := submitAll(t, w, "db1", "10.0.0.5", "primary", "root", "-", "2200")
	assert.Equal(t, duplicateText, out.Messages[0].Text)

	s, err := w.Load(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, StepName, s.Step)
	assert.NotContains(t, s.Data, StepName)
	assert.Equal(t, "10.0.0.5", *s.Data[StepHost])
	assert.Equal(t, "primary", *s.Data[StepDescription])
	assert.Nil(t, s.Data[StepSSHPassword])
	assert.Contains(t, s.Data, StepSSHPassword)

	// A new name walks the remaining steps again; earlier answers stay
	// until they are replaced.
	out = submitAll(t, w, "db2")
	assert.Empty(t, creator.created)
	assert.Equal(t, StepHost.Prompt(), out.Messages[0].Text)
	s, err = w.Load(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, StepHost, s.Step)
	assert.Equal(t, "10.0.0.5", *s.Data[StepHost])

	out = submitAll(t, w, "10.0.0.6", "primary", "root", "-", "2200")
	require.Len(t, creator.created, 1)
	assert.Equal(t, "db2", creator.created[0].Name)
	assert.Equal(t, "10.0.0.6", creator.created[0].Host)
	assert.Equal(t, 2200, creator.created[0].SSHPort)
	assert.Equal(t, addedText, out.Messages[0].Text)
}

func TestOtherPersistFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	creator := &fakeCreator{errs: []error{errors.New("connection refused")}}
	w := newWizard(t, state.NewMemoryStore(nil), creator)
	_, err := w.Start(ctx, owner)
	require.NoError(t, err)

	out := submitAll(t, w, "db1", "h", "-", "root", "-", "-")
	assert.Equal(t, []string{failedText}, texts(out.Messages))

	s, err := w.Load(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, StepSSHPort, s.Step)
	assert.NotContains(t, s.Data, StepSSHPort)

	// Resubmitting the last field retries the save.
	out = submitAll(t, w, "-")
	require.Len(t, creator.created, 1)
	assert.Equal(t, addedText, out.Messages[0].Text)
}

func TestSessionExpiresWithStoreTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := state.NewMemoryStore(func() time.Time { return now })
	w := New(store, &fakeCreator{}, Options{TTL: time.Hour})
	ctx := context.Background()
	_, err := w.Start(ctx, owner)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	active, err := w.Active(ctx, owner)
	require.NoError(t, err)
	assert.False(t, active)
}

type failingStore struct{ state.Store }

func (failingStore) Get(context.Context, string, any) (bool, error) {
	return false, errors.New("redis down")
}

func TestStoreFailureSurfaces(t *testing.T) {
	w := newWizard(t, failingStore{state.NewMemoryStore(nil)}, &fakeCreator{})
	_, err := w.Submit(context.Background(), owner, "db1")
	assert.Error(t, err)
}
