package services

import (
	"context"
	"fmt"
	"log"
	"mealmates-backend/config"
	"mealmates-backend/database"
	"mealmates-backend/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"google.golang.org/api/option"
)

type NotificationService struct {
	messaging *messaging.Client
}

var notifService *NotificationService

func GetNotificationService() *NotificationService {
	if notifService == nil {
		notifService = &NotificationService{}
		notifService.initFirebase()
	}
	return notifService
}

func (ns *NotificationService) initFirebase() {
	ctx := context.Background()
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(config.AppConfig.FirebaseCredPath))
	if err != nil {
		log.Println("⚠️  Firebase not configured, push notifications disabled:", err)
		return
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		log.Println("⚠️  Firebase messaging unavailable:", err)
		return
	}
	ns.messaging = client
}

func (ns *NotificationService) sendPush(fcmToken, title, body string, data map[string]string) {
	if fcmToken == "" || ns.messaging == nil {
		return
	}

	_, err := ns.messaging.Send(context.Background(), &messaging.Message{
		Token: fcmToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	})
	if err != nil {
		log.Printf("❌ Push send error: %v", err)
	}
}

func (ns *NotificationService) sendEmail(toEmail, toName, subject, htmlBody string) {
	if config.AppConfig.SendGridAPIKey == "" {
		log.Printf("⚠️  SendGrid API key not set, skipping email to %s", toEmail)
		return
	}

	from := mail.NewEmail(config.AppConfig.AppName, config.AppConfig.SendGridFrom)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, "", htmlBody)

	client := sendgrid.NewSendClient(config.AppConfig.SendGridAPIKey)
	resp, err := client.Send(message)
	if err != nil {
		log.Printf("❌ Email send error: %v", err)
		return
	}
	if resp.StatusCode >= 300 {
		log.Printf("⚠️  SendGrid returned status: %d", resp.StatusCode)
	}
}

// NotifyDinnerRequested pings every other active member that a decision was
// requested and their response is wanted.
func (ns *NotificationService) NotifyDinnerRequested(group models.Group, requester models.User, request models.DinnerRequest) {
	var memberships []models.GroupMember
	database.DB.Where("group_id = ? AND is_active = ?", group.ID, true).Find(&memberships)

	title := fmt.Sprintf("Dinner request in %s", group.Name)
	body := fmt.Sprintf("%s wants to plan dinner for %s at %s — accept or decline", requester.Name, request.Date.Format("Jan 2"), request.Time)

	for _, m := range memberships {
		if m.UserID == requester.ID {
			continue
		}
		var user models.User
		if err := database.DB.First(&user, "id = ?", m.UserID).Error; err != nil {
			continue
		}
		ns.sendPush(user.FCMToken, title, body, map[string]string{
			"type":       "dinner_requested",
			"request_id": request.ID.String(),
			"group_id":   group.ID.String(),
		})
	}
}

// NotifyVoteOpened tells members voting has started.
func (ns *NotificationService) NotifyVoteOpened(group models.Group, requester models.User, mealRequest models.MealRequest) {
	var memberships []models.GroupMember
	database.DB.Where("group_id = ? AND is_active = ?", group.ID, true).Find(&memberships)

	title := fmt.Sprintf("Voting open in %s", group.Name)
	body := fmt.Sprintf("%s opened a vote with %d meal options", requester.Name, mealRequest.TotalOptions)

	for _, m := range memberships {
		if m.UserID == requester.ID {
			continue
		}
		var user models.User
		if err := database.DB.First(&user, "id = ?", m.UserID).Error; err != nil {
			continue
		}
		ns.sendPush(user.FCMToken, title, body, map[string]string{
			"type":       "vote_opened",
			"request_id": mealRequest.ID.String(),
			"group_id":   group.ID.String(),
		})
	}
}

// NotifySessionTerminated announces the winning meal to the whole group.
func (ns *NotificationService) NotifySessionTerminated(group models.Group, session models.TerminatedSession) {
	winner := "the results are in"
	if len(session.TopResults) > 0 {
		winner = fmt.Sprintf("the group picked %s", session.TopResults[0].Meal.Name)
	}

	var memberships []models.GroupMember
	database.DB.Where("group_id = ? AND is_active = ?", group.ID, true).Find(&memberships)

	title := fmt.Sprintf("Dinner decided in %s", group.Name)
	for _, m := range memberships {
		var user models.User
		if err := database.DB.First(&user, "id = ?", m.UserID).Error; err != nil {
			continue
		}
		ns.sendPush(user.FCMToken, title, fmt.Sprintf("Voting closed — %s", winner), map[string]string{
			"type":     "session_terminated",
			"group_id": group.ID.String(),
		})
	}
}

// NotifyInvitation emails a non-registered user an invite to join the group.
func (ns *NotificationService) NotifyInvitation(email, inviterName, groupName, joinCode string) {
	subject := fmt.Sprintf("%s invited you to join \"%s\" on %s", inviterName, groupName, config.AppConfig.AppName)
	htmlBody := buildInvitationEmailHTML(inviterName, groupName, joinCode)
	ns.sendEmail(email, "", subject, htmlBody)
}

func buildInvitationEmailHTML(inviterName, groupName, joinCode string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f5f5f5;">
	<div style="background: white; border-radius: 12px; padding: 32px; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">
		<h2 style="color: #FF7043; margin-top: 0;">🍽 You're invited!</h2>
		<p><strong>%s</strong> invited you to join <strong>"%s"</strong> on MealMates.</p>
		<p>MealMates helps your group decide what's for dinner — request a decision, vote on meals, eat together.</p>
		<div style="background: #f8f9fa; border-radius: 8px; padding: 16px; margin: 16px 0; text-align: center;">
			<p style="margin: 4px 0; color: #666;">Your join code</p>
			<p style="margin: 4px 0; font-size: 24px; letter-spacing: 4px;"><strong>%s</strong></p>
		</div>
		<div style="margin: 24px 0;">
			<a href="%s" style="background: #FF7043; color: white; padding: 12px 32px; border-radius: 8px; text-decoration: none; font-weight: bold;">Join Now</a>
		</div>
		<p style="color: #999; font-size: 12px; margin-top: 24px;">— MealMates</p>
	</div>
</body>
</html>`, inviterName, groupName, joinCode, config.AppConfig.AppURL)
}
