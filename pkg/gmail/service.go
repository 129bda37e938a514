package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	boarddomain "mailboard-backend/internal/board/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// TokenUpdateFunc is a callback function that handles token updates
type TokenUpdateFunc = boarddomain.TokenUpdateFunc

// Service implements boarddomain.MailProvider on the Gmail API.
type Service struct {
	clientID     string
	clientSecret string
}

type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			log.Printf("[Gmail] Failed to persist refreshed token: %v", err)
		}
	}
	return t, nil
}

func NewService(clientID, clientSecret string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// getGmailService creates a Gmail service with the user's access token
func (s *Service) getGmailService(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}

	// Only force refresh if we have a refresh token
	if refreshToken != "" {
		token.Expiry = time.Now()
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	wrappedSource := &notifyTokenSource{
		src:      config.TokenSource(ctx, token),
		current:  token,
		callback: onTokenRefresh,
	}

	client := oauth2.NewClient(ctx, wrappedSource)

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %v", err)
	}

	return srv, nil
}

// ListMessages retrieves one forward-only page of messages for a label
// query. It never walks pages to emulate offsets; the caller holds the
// continuation token per column.
func (s *Service) ListMessages(ctx context.Context, accessToken, refreshToken string, q boarddomain.ListQuery, onTokenRefresh TokenUpdateFunc) (*boarddomain.MessagePage, error) {
	srv, err := s.getGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	user := "me"

	query := ""
	if q.LabelID != "" && q.LabelID != "ALL" {
		query = "label:" + q.LabelID
	}
	if q.Query != "" {
		if query != "" {
			query += " "
		}
		query += q.Query
	}

	maxResults := q.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}
	if maxResults > 500 {
		maxResults = 500 // Gmail API maximum
	}

	listQuery := srv.Users.Messages.List(user).MaxResults(maxResults)
	if query != "" {
		listQuery = listQuery.Q(query)
	}
	if q.PageToken != "" {
		listQuery = listQuery.PageToken(q.PageToken)
	}

	resp, err := listQuery.Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve messages: %v", err)
	}

	// Fetch message details in parallel with a bounded concurrency,
	// then restore newest-first order.
	type msgResult struct {
		msg *boarddomain.RemoteMessage
		err error
	}

	msgChan := make(chan msgResult, len(resp.Messages))
	semaphore := make(chan struct{}, 10)

	for _, m := range resp.Messages {
		go func(msgID string) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			fullMsg, err := srv.Users.Messages.Get(user, msgID).Format("full").Do()
			if err != nil {
				msgChan <- msgResult{nil, err}
				return
			}
			msgChan <- msgResult{convertMessage(fullMsg, false), nil}
		}(m.Id)
	}

	messages := make([]*boarddomain.RemoteMessage, 0, len(resp.Messages))
	for range resp.Messages {
		result := <-msgChan
		if result.err != nil {
			log.Printf("[Gmail] Skipping unreadable message: %v", result.err)
			continue
		}
		messages = append(messages, result.msg)
	}

	sort.Slice(messages, func(i, j int) bool {
		return messages[i].ReceivedAt.After(messages[j].ReceivedAt)
	})

	return &boarddomain.MessagePage{
		Messages:      messages,
		NextPageToken: resp.NextPageToken,
	}, nil
}

// GetMessage retrieves a single message with its body.
func (s *Service) GetMessage(ctx context.Context, accessToken, refreshToken, messageID string, onTokenRefresh TokenUpdateFunc) (*boarddomain.RemoteMessage, error) {
	srv, err := s.getGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	msg, err := srv.Users.Messages.Get("me", messageID).Format("full").Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve message: %v", err)
	}

	return convertMessage(msg, true), nil
}

// ModifyLabels issues one combined add/remove label mutation.
func (s *Service) ModifyLabels(ctx context.Context, accessToken, refreshToken, messageID string, addLabelIDs, removeLabelIDs []string, onTokenRefresh TokenUpdateFunc) error {
	if len(addLabelIDs) == 0 && len(removeLabelIDs) == 0 {
		return nil
	}

	srv, err := s.getGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return err
	}

	modifyReq := &gmail.ModifyMessageRequest{
		AddLabelIds:    addLabelIDs,
		RemoveLabelIds: removeLabelIDs,
	}

	_, err = srv.Users.Messages.Modify("me", messageID, modifyReq).Do()
	if err != nil {
		return fmt.Errorf("unable to modify message labels: %v", err)
	}

	return nil
}

// ListLabels retrieves the remote label catalog.
func (s *Service) ListLabels(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) ([]*boarddomain.RemoteLabel, error) {
	srv, err := s.getGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	resp, err := srv.Users.Labels.List("me").Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve labels: %v", err)
	}

	labels := make([]*boarddomain.RemoteLabel, 0, len(resp.Labels))
	for _, label := range resp.Labels {
		if label.Type != "system" && label.Type != "user" {
			continue
		}
		labels = append(labels, &boarddomain.RemoteLabel{
			ID:   label.Id,
			Name: label.Name,
			Type: label.Type,
		})
	}

	return labels, nil
}

// HistoryChanges lists the remote history since a known history id and
// normalizes it into change records. It returns the new history id to
// store for the next diff.
func (s *Service) HistoryChanges(ctx context.Context, accessToken, refreshToken string, sinceHistoryID uint64, onTokenRefresh TokenUpdateFunc) ([]*boarddomain.RemoteChange, uint64, error) {
	srv, err := s.getGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, 0, err
	}

	var changes []*boarddomain.RemoteChange
	newHistoryID := sinceHistoryID
	pageToken := ""

	for {
		call := srv.Users.History.List("me").StartHistoryId(sinceHistoryID)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, 0, fmt.Errorf("unable to retrieve history: %v", err)
		}

		if resp.HistoryId > newHistoryID {
			newHistoryID = resp.HistoryId
		}

		for _, h := range resp.History {
			for _, added := range h.MessagesAdded {
				changes = append(changes, &boarddomain.RemoteChange{
					Type:      boarddomain.ChangeMessageAdded,
					MessageID: added.Message.Id,
					LabelIDs:  added.Message.LabelIds,
				})
			}
			for _, deleted := range h.MessagesDeleted {
				changes = append(changes, &boarddomain.RemoteChange{
					Type:      boarddomain.ChangeMessageDeleted,
					MessageID: deleted.Message.Id,
				})
			}
			for _, labeled := range h.LabelsAdded {
				changes = append(changes, &boarddomain.RemoteChange{
					Type:      boarddomain.ChangeLabelAdded,
					MessageID: labeled.Message.Id,
					LabelIDs:  labeled.LabelIds,
				})
			}
			for _, unlabeled := range h.LabelsRemoved {
				changes = append(changes, &boarddomain.RemoteChange{
					Type:      boarddomain.ChangeLabelRemoved,
					MessageID: unlabeled.Message.Id,
					LabelIDs:  unlabeled.LabelIds,
				})
			}
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return changes, newHistoryID, nil
}

// Watch registers a push-notification watch on the user's mailbox.
// Watches expire after 7 days and must be renewed.
func (s *Service) Watch(ctx context.Context, accessToken, refreshToken, topicName string, onTokenRefresh TokenUpdateFunc) error {
	srv, err := s.getGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return err
	}

	req := &gmail.WatchRequest{
		TopicName: topicName,
		LabelIds:  []string{"INBOX"},
	}

	_, err = srv.Users.Watch("me", req).Do()
	if err != nil {
		return fmt.Errorf("unable to register watch: %v", err)
	}

	return nil
}

// Helper functions

func convertMessage(msg *gmail.Message, withBody bool) *boarddomain.RemoteMessage {
	from := getHeader(msg.Payload.Headers, "From")
	fromName, fromEmail := splitAddress(from)

	remote := &boarddomain.RemoteMessage{
		ID:             msg.Id,
		ThreadID:       msg.ThreadId,
		FromName:       fromName,
		FromEmail:      fromEmail,
		Subject:        getHeader(msg.Payload.Headers, "Subject"),
		Snippet:        msg.Snippet,
		ReceivedAt:     time.Unix(msg.InternalDate/1000, 0),
		IsRead:         !hasLabel(msg.LabelIds, "UNREAD"),
		HasAttachments: hasRealAttachments(msg.Payload, 0),
		LabelIDs:       msg.LabelIds,
	}

	if withBody {
		remote.Body = getMessageBody(msg.Payload)
	}

	return remote
}

// splitAddress splits "Name <email@example.com>" into its parts.
func splitAddress(from string) (name, email string) {
	name = from
	email = from
	if idx := strings.Index(from, "<"); idx >= 0 {
		name = strings.TrimSpace(from[:idx])
		email = strings.Trim(strings.TrimSpace(from[idx:]), "<>")
	}
	if name == "" {
		name = email
	}
	return name, email
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if header.Name == name {
			return header.Value
		}
	}
	return ""
}

const maxPartDepth = 20

// hasRealAttachments walks the MIME tree looking for attachment parts.
// Inline images (parts carrying a Content-ID) do not count.
func hasRealAttachments(part *gmail.MessagePart, depth int) bool {
	if part == nil || depth > maxPartDepth {
		return false
	}
	for _, p := range part.Parts {
		if p.Filename != "" && p.Body != nil && p.Body.AttachmentId != "" {
			if getHeader(p.Headers, "Content-ID") == "" {
				return true
			}
		}
		if hasRealAttachments(p, depth+1) {
			return true
		}
	}
	return false
}

// getMessageBody extracts the message body, preferring HTML.
func getMessageBody(payload *gmail.MessagePart) string {
	if payload.Body != nil && payload.Body.Data != "" {
		if data, err := base64.URLEncoding.DecodeString(payload.Body.Data); err == nil {
			return string(data)
		}
	}

	var htmlBody, plainBody string

	var findBody func(parts []*gmail.MessagePart, depth int)
	findBody = func(parts []*gmail.MessagePart, depth int) {
		if depth > maxPartDepth {
			return
		}
		for _, part := range parts {
			if part.Body != nil && part.Body.Data != "" {
				data, err := base64.URLEncoding.DecodeString(part.Body.Data)
				if err == nil {
					switch part.MimeType {
					case "text/html":
						htmlBody = string(data)
					case "text/plain":
						plainBody = string(data)
					}
				}
			}
			if len(part.Parts) > 0 {
				findBody(part.Parts, depth+1)
			}
		}
	}

	findBody(payload.Parts, 0)

	if htmlBody != "" {
		return htmlBody
	}
	return plainBody
}

func hasLabel(labels []string, labelID string) bool {
	for _, label := range labels {
		if label == labelID {
			return true
		}
	}
	return false
}
