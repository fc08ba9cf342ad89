package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/hucksarn/movieflixdash/internal/domain/mediarequest"
	"github.com/hucksarn/movieflixdash/internal/domain/subscription"
	"github.com/hucksarn/movieflixdash/internal/domain/user"
	"github.com/hucksarn/movieflixdash/internal/domain/workflow"
	"github.com/hucksarn/movieflixdash/internal/infrastructure/mediaserver"
	"github.com/hucksarn/movieflixdash/internal/infrastructure/telegram"
)

// HandleUpdate implements telegram.UpdateHandler. Only callback queries are
// acted on; everything else is ignored. Errors raised by a command are
// surfaced to the pressing admin as an ephemeral alert and never propagate
// to the poll loop.
func (e *Engine) HandleUpdate(ctx context.Context, upd telegram.Update) error {
	cb := upd.CallbackQuery
	if cb == nil {
		return nil
	}

	cfg, err := e.docs.Settings()
	if err != nil {
		return e.chat.AnswerCallbackQuery(cb.ID, "Configuration unavailable", true)
	}
	if !isAdmin(cfg, cb.From) {
		e.log.Warnw("callback from non-admin", "user_id", cb.From.ID, "username", cb.From.Username)
		return e.chat.AnswerCallbackQuery(cb.ID, "Not authorized", true)
	}

	cmd := ParseCommand(cb.Data)
	if _, ok := cmd.(Unknown); ok {
		e.log.Warnw("unknown callback action", "data", cb.Data)
		return e.chat.AnswerCallbackQuery(cb.ID, "Unknown action", false)
	}

	e.mu.Lock()
	ack, err := e.execute(ctx, cmd, adminDisplayName(cb.From), cb)
	e.mu.Unlock()

	if err != nil {
		e.log.Errorw("command failed", "data", cb.Data, "error", err)
		return e.chat.AnswerCallbackQuery(cb.ID, "Error: "+err.Error(), true)
	}
	return e.chat.AnswerCallbackQuery(cb.ID, ack, false)
}

// execute dispatches one parsed command and returns the acknowledgement text
// for the callback answer.
func (e *Engine) execute(ctx context.Context, cmd Command, adminName string, cb *telegram.CallbackQuery) (string, error) {
	switch c := cmd.(type) {
	case ApprovePayment:
		return e.approvePayment(ctx, c.ID, adminName)
	case RejectPayment:
		return e.rejectPayment(c.ID, adminName)
	case ApproveMedia:
		return e.approveMedia(ctx, c.ID, adminName, cb)
	case RejectMedia:
		return e.rejectMedia(ctx, c.ID, adminName)
	case ChooseRootFolder:
		return e.chooseRootFolder(ctx, c.ID, c.Index, adminName)
	default:
		return "Unknown action", nil
	}
}

func (e *Engine) approvePayment(ctx context.Context, id, adminName string) (string, error) {
	subs, err := e.docs.Subscriptions()
	if err != nil {
		return "", err
	}
	rec := subscription.Find(subs, id)
	if rec == nil {
		return "", fmt.Errorf("subscription %s not found", id)
	}
	if rec.Status != subscription.StatusPending {
		return "Already handled", nil
	}

	// extend from the current window when one is still running
	userSubs := make([]subscription.Subscription, 0, len(subs))
	for _, s := range subs {
		if s.UserKey() == rec.UserKey() && s.ID != rec.ID {
			userSubs = append(userSubs, s)
		}
	}
	var current *subscription.Subscription
	if len(userSubs) > 0 {
		current = subscription.Authoritative(userSubs)
	}

	now := e.now()
	rec.Approve(now, current, adminName)
	superseded := subscription.SupersedePending(subs, rec.ID)
	if err := e.docs.SaveSubscriptions(subs); err != nil {
		return "", err
	}
	e.log.Infow("payment approved",
		"subscription_id", rec.ID,
		"username", rec.Username,
		"ends", rec.EndDate.Format("2006-01-02"),
		"superseded", len(superseded),
	)

	// re-enable access right away instead of waiting for the reconciler
	e.enableAccess(ctx, *rec)

	e.resolvePaymentMessages(*rec, true, adminName)
	return "Payment approved", nil
}

func (e *Engine) rejectPayment(id, adminName string) (string, error) {
	subs, err := e.docs.Subscriptions()
	if err != nil {
		return "", err
	}
	rec := subscription.Find(subs, id)
	if rec == nil {
		return "", fmt.Errorf("subscription %s not found", id)
	}
	if rec.Status != subscription.StatusPending {
		return "Already handled", nil
	}

	rec.Status = subscription.StatusRejected
	if err := e.docs.SaveSubscriptions(subs); err != nil {
		return "", err
	}
	e.log.Infow("payment rejected", "subscription_id", rec.ID, "username", rec.Username)

	e.resolvePaymentMessages(*rec, false, adminName)
	return "Payment rejected", nil
}

func (e *Engine) approveMedia(ctx context.Context, id, adminName string, cb *telegram.CallbackQuery) (string, error) {
	reqs, err := e.docs.MediaRequests()
	if err != nil {
		return "", err
	}
	req := mediarequest.Find(reqs, id)
	if req == nil {
		return "", fmt.Errorf("media request %s not found", id)
	}
	if req.Status != mediarequest.StatusPending {
		return "Already handled", nil
	}

	folders, profileID, err := e.destinationOptions(ctx, req.MediaType)
	if err != nil {
		return "", err
	}

	if len(folders) > 1 {
		// park the approval until the admin picks a destination
		state, err := e.docs.BotState()
		if err != nil {
			return "", err
		}
		state.PendingSelections[req.ID] = workflow.RootFolderSelection{
			RequestID:   req.ID,
			RootFolders: folders,
			ProfileID:   profileID,
		}
		e.saveState(state)

		chatID := cb.From.ID
		if cb.Message != nil && cb.Message.Chat != nil {
			chatID = cb.Message.Chat.ID
		}
		prompt := fmt.Sprintf("📁 Pick a destination for <b>%s</b>:", telegram.EscapeHTML(req.DisplayTitle()))
		if _, err := e.chat.SendMessageWithInlineKeyboard(chatID, prompt, rootFolderKeyboard(req.ID, folders)); err != nil {
			return "", err
		}
		return "Choose a destination folder", nil
	}

	folder := ""
	if len(folders) == 1 {
		folder = folders[0]
	}
	if err := e.finalizeMediaApproval(ctx, reqs, req, folder, profileID, adminName); err != nil {
		return "", err
	}
	return "Request approved", nil
}

func (e *Engine) chooseRootFolder(ctx context.Context, id string, index int, adminName string) (string, error) {
	reqs, err := e.docs.MediaRequests()
	if err != nil {
		return "", err
	}
	req := mediarequest.Find(reqs, id)
	if req == nil {
		return "", fmt.Errorf("media request %s not found", id)
	}
	if req.Status != mediarequest.StatusPending {
		return "Already handled", nil
	}

	state, err := e.docs.BotState()
	if err != nil {
		return "", err
	}
	sel, ok := state.PendingSelections[id]
	if !ok {
		// process restarted between prompt and choice; recompute the
		// options so the stored button index maps onto the same list
		folders, profileID, err := e.destinationOptions(ctx, req.MediaType)
		if err != nil {
			return "", err
		}
		sel = workflow.RootFolderSelection{RequestID: id, RootFolders: folders, ProfileID: profileID}
	}
	if index >= len(sel.RootFolders) {
		return "", fmt.Errorf("folder choice %d out of range", index)
	}

	if err := e.finalizeMediaApproval(ctx, reqs, req, sel.RootFolders[index], sel.ProfileID, adminName); err != nil {
		return "", err
	}
	return "Request approved", nil
}

func (e *Engine) rejectMedia(ctx context.Context, id, adminName string) (string, error) {
	reqs, err := e.docs.MediaRequests()
	if err != nil {
		return "", err
	}
	req := mediarequest.Find(reqs, id)
	if req == nil {
		return "", fmt.Errorf("media request %s not found", id)
	}
	if req.Status != mediarequest.StatusPending {
		return "Already handled", nil
	}

	// best-effort cleanup of the external record
	var forwarded bool
	if req.RequestManagerID != nil && e.reqmgr != nil {
		if err := e.reqmgr.DeleteRequest(ctx, *req.RequestManagerID); err != nil {
			e.log.Warnw("external request delete failed", "request_id", req.ID, "error", err)
		} else {
			forwarded = true
		}
	}

	now := e.now()
	req.Status = mediarequest.StatusRejected
	req.RejectionForwarded = forwarded
	req.ApprovedBy = adminName
	req.UpdatedAt = now
	if err := e.docs.SaveMediaRequests(reqs); err != nil {
		return "", err
	}
	e.log.Infow("media request rejected", "request_id", req.ID, "title", req.Title)

	e.resolveMediaMessages(*req, false, adminName)
	return "Request rejected", nil
}

// destinationOptions fetches the folder paths and the default quality
// profile for the manager serving a media type.
func (e *Engine) destinationOptions(ctx context.Context, mediaType mediarequest.MediaType) ([]string, int, error) {
	mgr := e.managerFor(mediaType)
	if mgr == nil || !mgr.Configured() {
		return nil, 0, nil
	}
	roots, err := mgr.RootFolders(ctx)
	if err != nil {
		return nil, 0, err
	}
	folders := make([]string, 0, len(roots))
	for _, rf := range roots {
		folders = append(folders, rf.Path)
	}

	profiles, err := mgr.QualityProfiles(ctx)
	if err != nil {
		return nil, 0, err
	}
	profileID := 0
	if len(profiles) > 0 {
		profileID = profiles[0].ID
	}
	return folders, profileID, nil
}

func (e *Engine) finalizeMediaApproval(ctx context.Context, reqs []mediarequest.MediaRequest, req *mediarequest.MediaRequest, folder string, profileID int, adminName string) error {
	if e.reqmgr != nil && e.reqmgr.Configured() {
		externalID, err := e.reqmgr.CreateRequest(ctx, *req, folder, profileID)
		if err != nil {
			return err
		}
		req.RequestManagerID = &externalID
	}

	now := e.now()
	req.Status = mediarequest.StatusApproved
	req.RootFolder = folder
	req.ApprovedBy = adminName
	req.ApprovedAt = &now
	req.UpdatedAt = now
	if err := e.docs.SaveMediaRequests(reqs); err != nil {
		return err
	}
	e.log.Infow("media request approved",
		"request_id", req.ID,
		"title", req.Title,
		"root_folder", folder,
	)

	e.resolveMediaMessages(*req, true, adminName)
	return nil
}

// enableAccess flips the approved user's policy immediately. Failures are
// logged only; the reconciler converges on the next cycle regardless.
func (e *Engine) enableAccess(ctx context.Context, rec subscription.Subscription) {
	if e.media == nil {
		return
	}
	users, err := e.media.ListUsers(ctx)
	if err != nil {
		e.log.Warnw("policy enable skipped, user listing failed", "error", err)
		return
	}
	var target *user.MediaUser
	for i, u := range users {
		if u.ID == rec.UserID || strings.EqualFold(u.Name, rec.Username) {
			target = &users[i]
			break
		}
	}
	if target == nil {
		e.log.Warnw("policy enable skipped, no upstream account", "username", rec.Username)
		return
	}

	libraries, err := e.media.ListLibraries(ctx)
	if err != nil {
		e.log.Warnw("policy enable skipped, library listing failed", "error", err)
		return
	}
	current, err := e.media.GetPolicy(ctx, target.ID)
	if err != nil {
		e.log.Warnw("policy enable skipped, policy read failed", "error", err)
		return
	}
	targetPolicy := mediaserver.BuildAccessPolicy(true, libraries)
	if mediaserver.PolicyEquals(current, targetPolicy) {
		return
	}
	if err := e.media.UpdatePolicy(ctx, target.ID, current, targetPolicy); err != nil {
		e.log.Warnw("policy enable failed", "username", rec.Username, "error", err)
		return
	}
	e.log.Infow("access re-enabled on approval", "username", rec.Username)

	// make the account usable in the request manager too
	if e.reqmgr != nil && e.reqmgr.Configured() {
		if err := e.reqmgr.ImportUsers(ctx, []string{target.ID}); err != nil {
			e.log.Warnw("request manager import failed", "username", rec.Username, "error", err)
		}
	}
}

// resolvePaymentMessages edits every notification message for a payment to
// its final text and drops the stored references.
func (e *Engine) resolvePaymentMessages(rec subscription.Subscription, approved bool, adminName string) {
	state, err := e.docs.BotState()
	if err != nil {
		e.log.Warnw("failed to load state for message resolution", "error", err)
		return
	}
	e.editRefs(state.PaymentMessages[rec.ID], paymentResolvedMessage(rec, approved, adminName))
	state.ClearPayment(rec.ID)
	e.saveState(state)
}

func (e *Engine) resolveMediaMessages(req mediarequest.MediaRequest, approved bool, adminName string) {
	state, err := e.docs.BotState()
	if err != nil {
		e.log.Warnw("failed to load state for message resolution", "error", err)
		return
	}
	e.editRefs(state.MediaMessages[req.ID], mediaResolvedMessage(req, approved, adminName))
	state.ClearMedia(req.ID)
	e.saveState(state)
}

func (e *Engine) editRefs(refs []workflow.MessageRef, text string) {
	for _, ref := range refs {
		var err error
		if ref.Caption {
			err = e.chat.EditMessageCaption(ref.ChatID, int64(ref.MessageID), text)
		} else {
			err = e.chat.EditMessageText(ref.ChatID, int64(ref.MessageID), text)
		}
		if err != nil {
			e.log.Warnw("message edit failed", "chat_id", ref.ChatID, "message_id", ref.MessageID, "error", err)
		}
	}
}

func adminDisplayName(u *telegram.User) string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
