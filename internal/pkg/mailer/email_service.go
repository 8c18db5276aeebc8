// FILE: internal/pkg/mailer/email_service.go
package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendDecisionRecorded(toEmail, caseID, action, reason string) error
	SendAutomationFailed(toEmail, caseID, phase string) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
}

func NewEmailService(host string, port int, username, password, senderEmail string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
	}
}

func (s *emailService) SendDecisionRecorded(toEmail, caseID, action, reason string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("Decision recorded for case %s", caseID))

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>A reviewer has decided on your prior authorization request</h2>
			<p>Case: <strong>%s</strong></p>
			<p>Decision: <strong>%s</strong></p>
			<p>%s</p>
			<p>You will receive a follow-up notification once downstream processing finishes.</p>
		</div>
	`, caseID, action, reason)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send decision notice to %s: %v\n", toEmail, err)
		return err
	}

	fmt.Printf("[MAILER] Decision notice sent to %s\n", toEmail)
	return nil
}

func (s *emailService) SendAutomationFailed(toEmail, caseID, phase string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("Action required: case %s needs manual follow-up", caseID))

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Automated follow-through did not complete</h2>
			<p>Case: <strong>%s</strong></p>
			<p>The reviewer's decision is recorded and stands, but the automated step
			<strong>%s</strong> did not finish. A coordinator can retry it from the case view.</p>
		</div>
	`, caseID, phase)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send automation notice to %s: %v\n", toEmail, err)
		return err
	}

	fmt.Printf("[MAILER] Automation notice sent to %s\n", toEmail)
	return nil
}
