package services

import (
	"fmt"
	"time"

	"ridealong/internal/models"
	"ridealong/internal/utils"
)

// DisplayTimeFormat renders scheduled times in messages
const DisplayTimeFormat = "Mon Jan 2, 2006 3:04 PM MST"

// ReminderMessage composes the upcoming-ride reminder sent to a volunteer.
// The ride must have its volunteer user and client user loaded.
func ReminderMessage(ride *models.Ride, loc *time.Location) Message {
	volunteerName := ""
	if ride.Volunteer != nil {
		volunteerName = ride.Volunteer.User.Name
	}
	client := ride.Client.User.Name
	if phone := ride.Client.User.Phone; phone != "" {
		client += " " + utils.FormatPhone(phone)
	}

	body := fmt.Sprintf(`Hi %s,

This is a reminder for your upcoming ride.

Scheduled Time: %s
Client: %s
Pickup: %s
Dropoff: %s
Notes: %s

Thank you for volunteering!`,
		volunteerName,
		ride.ScheduledTime.In(loc).Format(DisplayTimeFormat),
		client,
		ride.PickupDisplay,
		ride.DropoffDisplay,
		ride.NotesOr("None"),
	)

	return Message{
		Subject: fmt.Sprintf("Upcoming Ride Reminder: %s", ride.PickupDisplay),
		Body:    body,
	}
}

// LoginCodeMessage carries a one-time sign-in code
func LoginCodeMessage(code string, ttl time.Duration) Message {
	return Message{
		Subject: "Your sign-in code",
		Body: fmt.Sprintf("Your sign-in code is %s\n\nIt expires in %d minutes. If you did not request it, you can ignore this email.",
			code, int(ttl.Minutes())),
	}
}

// RideAssignedMessage tells a client a volunteer signed up for their ride
func RideAssignedMessage(ride *models.Ride, volunteer *models.Volunteer, loc *time.Location) Message {
	return Message{
		Subject: "A volunteer is driving you",
		Body: fmt.Sprintf("Hi %s,\n\n%s will drive you on %s.\n\nPickup: %s\nDropoff: %s",
			ride.Client.User.Name,
			volunteer.User.Name,
			ride.ScheduledTime.In(loc).Format(DisplayTimeFormat),
			ride.PickupDisplay,
			ride.DropoffDisplay,
		),
	}
}

// RideUnassignedMessage tells a client their volunteer withdrew
func RideUnassignedMessage(ride *models.Ride, loc *time.Location) Message {
	return Message{
		Subject: "Your ride needs a new volunteer",
		Body: fmt.Sprintf("Hi %s,\n\nThe volunteer for your ride on %s is no longer available. We are looking for someone else and will let you know.",
			ride.Client.User.Name,
			ride.ScheduledTime.In(loc).Format(DisplayTimeFormat),
		),
	}
}
