package user

import (
	"github.com/trezcool/shida/core"
)

type serviceMock struct {
	service
}

// NewServiceMock returns a Service whose emails are sent synchronously.
func NewServiceMock(db core.DB, repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	return &serviceMock{
		service: service{
			db:      db,
			repo:    repo,
			mailSvc: mailSvc,
			conf:    conf,
		},
	}
}

func (svc *serviceMock) RequestPasswordReset(email string) error {
	usr, err := svc.GetByEmail(email)
	if err != nil {
		return err
	}
	// run synchronously
	svc.sendPasswordResetMail(usr)
	return nil
}
