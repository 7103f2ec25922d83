package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/waegarcia/conversational-assistant/internal/domain"
)

// FirestoreStore keeps each conversation as a document with its messages in
// a subcollection.
type FirestoreStore struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreStore creates a Firestore-backed store for projectID.
// FIRESTORE_EMULATOR_HOST is honoured by the client library.
func NewFirestoreStore(ctx context.Context, projectID string, logger *zap.Logger) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &FirestoreStore{client: client, logger: logger}, nil
}

func (s *FirestoreStore) conversationsCol() *firestore.CollectionRef {
	return s.client.Collection("conversations")
}

func (s *FirestoreStore) conversationDoc(sessionID string) *firestore.DocumentRef {
	return s.conversationsCol().Doc(sessionID)
}

func (s *FirestoreStore) messagesCol(sessionID string) *firestore.CollectionRef {
	return s.conversationDoc(sessionID).Collection("messages")
}

type conversationDoc struct {
	UserID       string     `firestore:"user_id"`
	Status       string     `firestore:"status"`
	StartedAt    time.Time  `firestore:"started_at"`
	EndedAt      *time.Time `firestore:"ended_at"`
	MessageCount int        `firestore:"message_count"`
}

type messageDoc struct {
	Seq             int       `firestore:"seq"`
	Role            string    `firestore:"role"`
	Content         string    `firestore:"content"`
	Intent          string    `firestore:"intent"`
	ExternalService string    `firestore:"external_service"`
	CreatedAt       time.Time `firestore:"created_at"`
}

func (d conversationDoc) toDomain(sessionID string) *domain.Conversation {
	return &domain.Conversation{
		SessionID: sessionID,
		UserID:    d.UserID,
		Status:    domain.ConversationStatus(d.Status),
		StartedAt: d.StartedAt,
		EndedAt:   d.EndedAt,
	}
}

func (s *FirestoreStore) CreateConversation(ctx context.Context, conv *domain.Conversation) (bool, error) {
	doc := conversationDoc{
		UserID:    conv.UserID,
		Status:    string(conv.Status),
		StartedAt: conv.StartedAt,
		EndedAt:   conv.EndedAt,
	}
	if _, err := s.conversationDoc(conv.SessionID).Create(ctx, doc); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return false, nil
		}
		return false, fmt.Errorf("firestore CreateConversation: %w", err)
	}
	return true, nil
}

func (s *FirestoreStore) GetConversation(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	snap, err := s.conversationDoc(sessionID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("firestore GetConversation: %w", err)
	}

	var doc conversationDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetConversation decode: %w", err)
	}
	return doc.toDomain(sessionID), nil
}

func (s *FirestoreStore) GetHistory(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	conv, err := s.GetConversation(ctx, sessionID)
	if err != nil || conv == nil {
		return conv, err
	}

	iter := s.messagesCol(sessionID).OrderBy("seq", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore GetHistory: %w", err)
		}

		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode messageDoc: %w", err)
		}
		conv.Messages = append(conv.Messages, domain.Message{
			Seq:                 doc.Seq,
			Role:                domain.Role(doc.Role),
			Content:             doc.Content,
			Intent:              domain.Intent(doc.Intent),
			ExternalServiceUsed: doc.ExternalService,
			CreatedAt:           doc.CreatedAt,
		})
	}
	return conv, nil
}

// AppendTurn reserves sequence numbers through message_count on the
// conversation document inside a transaction.
func (s *FirestoreStore) AppendTurn(ctx context.Context, sessionID string, user, assistant *domain.Message) error {
	convRef := s.conversationDoc(sessionID)
	var userSeq int

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(convRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errConversationMissing(sessionID)
			}
			return err
		}

		var doc conversationDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}

		userSeq = doc.MessageCount + 1
		for i, m := range []*domain.Message{user, assistant} {
			seq := userSeq + i
			ref := s.messagesCol(sessionID).Doc(fmt.Sprintf("%010d", seq))
			if err := tx.Create(ref, messageDoc{
				Seq:             seq,
				Role:            string(m.Role),
				Content:         m.Content,
				Intent:          string(m.Intent),
				ExternalService: m.ExternalServiceUsed,
				CreatedAt:       m.CreatedAt,
			}); err != nil {
				return err
			}
		}

		return tx.Update(convRef, []firestore.Update{
			{Path: "message_count", Value: doc.MessageCount + 2},
		})
	})
	if err != nil {
		return fmt.Errorf("firestore AppendTurn: %w", err)
	}

	user.Seq = userSeq
	assistant.Seq = userSeq + 1
	return nil
}

func (s *FirestoreStore) EndConversation(ctx context.Context, sessionID string, endedAt time.Time) (bool, error) {
	convRef := s.conversationDoc(sessionID)
	ended := false

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ended = false
		snap, err := tx.Get(convRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil
			}
			return err
		}

		var doc conversationDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		if doc.Status != string(domain.ConversationStatusActive) {
			return nil
		}

		ended = true
		return tx.Update(convRef, []firestore.Update{
			{Path: "status", Value: string(domain.ConversationStatusCompleted)},
			{Path: "ended_at", Value: endedAt},
		})
	})
	if err != nil {
		return false, fmt.Errorf("firestore EndConversation: %w", err)
	}
	return ended, nil
}

func (s *FirestoreStore) CountActive(ctx context.Context) (int, error) {
	iter := s.conversationsCol().
		Where("status", "==", string(domain.ConversationStatusActive)).
		Select().
		Documents(ctx)
	defer iter.Stop()

	n := 0
	for {
		_, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("firestore CountActive: %w", err)
		}
		n++
	}
	return n, nil
}

// Close closes the Firestore client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
