// README: Chat channels in Firebase RTDB under chats/{bookingID}, created inside an RTDB transaction.
package chat

import (
	"context"
	"fmt"
	"time"

	"firebase.google.com/go/v4/db"

	"toda/internal/infra"
	"toda/internal/types"
)

const rootPath = "chats"

// FirebaseService is the production Service; the mobile clients listen to
// the same chats node for messages.
type FirebaseService struct {
	client *db.Client
	now    func() time.Time
}

func NewFirebaseService(client *db.Client) *FirebaseService {
	return &FirebaseService{client: client, now: time.Now}
}

func (s *FirebaseService) EnsureChannel(ctx context.Context, bookingID, riderID, driverID types.ID) (types.ID, error) {
	if err := validate(bookingID, riderID, driverID); err != nil {
		return "", err
	}
	ref := s.client.NewRef(rootPath + "/" + string(bookingID))

	var existing *Channel
	err := ref.Transaction(ctx, func(node db.TransactionNode) (interface{}, error) {
		var cur Channel
		if err := node.Unmarshal(&cur); err != nil {
			return nil, err
		}
		if cur.ID != "" {
			existing = &cur
			return cur, nil
		}
		existing = nil
		return newChannel(bookingID, riderID, driverID, s.now()), nil
	})
	if err != nil {
		return "", infra.RemoteError(fmt.Sprintf("ensure chat channel %s", bookingID), err)
	}
	if existing != nil {
		return reconcile(*existing, riderID, driverID)
	}
	return bookingID, nil
}
