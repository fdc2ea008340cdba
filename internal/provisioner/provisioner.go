package provisioner

import (
	"context"
	"fmt"
	"net"

	"github.com/hogwarts-cloud/clonectl/internal/guestnet"
	"github.com/hogwarts-cloud/clonectl/internal/models"
	"github.com/hogwarts-cloud/clonectl/internal/readiness"
	"github.com/hogwarts-cloud/clonectl/internal/remote"
	"github.com/hogwarts-cloud/clonectl/internal/sequencer"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type ControlPlane interface {
	Clone(ctx context.Context, sourceID, targetID int, name string) error
	Configure(ctx context.Context, id int, attributes map[string]string) error
	Start(ctx context.Context, id int) error
	Stop(ctx context.Context, id int) error
}

// RunnerFactory builds a remote-exec runner for a guest address. A fresh
// runner is needed per address because clones change identity mid-run.
type RunnerFactory func(host string, credential models.Credential) remote.Runner

type Config struct {
	ControlPlane ControlPlane
	Runners      RunnerFactory
	Poller       readiness.Poller
	Log          *logrus.Logger
	// Concurrency bounds the clone/start worker pool. Network
	// reconfiguration is always serialized: every clone initially
	// answers on the template's own live address, so concurrent
	// mutation would race on the shared template identity.
	Concurrency int
}

// RunInput is everything one provisioning run needs: the allocation plus
// the template's live network identity and the guest credential.
type RunInput struct {
	Request    models.AllocationRequest
	TemplateIP net.IP
	Credential models.Credential
	OSFamily   models.OSFamily
}

type Provisioner struct {
	controlPlane ControlPlane
	runners      RunnerFactory
	poller       readiness.Poller
	log          *logrus.Logger
	concurrency  int
}

// Run carries every task through Pending → Cloned → Started →
// Configuring → Ready | Failed. No task failure halts the run; each task
// ends in exactly one outcome.
func (p *Provisioner) Run(ctx context.Context, input RunInput) (models.Report, error) {
	strategy, err := guestnet.ForFamily(input.OSFamily)
	if err != nil {
		return models.Report{}, err
	}

	tasks, err := sequencer.Tasks(input.Request)
	if err != nil {
		return models.Report{}, fmt.Errorf("failed to compute tasks: %w", err)
	}

	outcomes := make([]models.Outcome, len(tasks))
	for i, task := range tasks {
		outcomes[i] = models.Outcome{Task: task, State: models.Pending}
	}

	if p.concurrency > 1 {
		eg, egctx := errgroup.WithContext(ctx)
		eg.SetLimit(p.concurrency)

		for i := range outcomes {
			outcome := &outcomes[i]

			eg.Go(func() error {
				p.prepare(egctx, input.Request, outcome)
				return nil
			})
		}

		eg.Wait()

		for i := range outcomes {
			if outcomes[i].State == models.Started {
				p.configure(ctx, input, strategy, &outcomes[i])
			}
		}
	} else {
		for i := range outcomes {
			if p.prepare(ctx, input.Request, &outcomes[i]) {
				p.configure(ctx, input, strategy, &outcomes[i])
			}
		}
	}

	for i := range outcomes {
		p.cleanup(ctx, &outcomes[i])
	}

	report := models.Report{}
	for _, outcome := range outcomes {
		report.Add(outcome)
	}

	return report, nil
}

// prepare drives Pending → Cloned → Started.
func (p *Provisioner) prepare(ctx context.Context, req models.AllocationRequest, outcome *models.Outcome) bool {
	task := outcome.Task

	if err := p.controlPlane.Clone(ctx, req.TemplateID, task.InstanceID, task.Name); err != nil {
		p.fail(outcome, models.CloneFailure, err)
		return false
	}

	attributes := map[string]string{
		"net0": fmt.Sprintf("virtio,bridge=%s", req.Bridge),
	}
	if req.Pool != "" {
		attributes["pool"] = req.Pool
	}
	if req.DiskSpec != "" {
		attributes["disk"] = req.DiskSpec
	}
	if err := p.controlPlane.Configure(ctx, task.InstanceID, attributes); err != nil {
		p.fail(outcome, models.CloneFailure, err)
		return false
	}

	p.transition(outcome, models.Cloned)

	if err := p.controlPlane.Start(ctx, task.InstanceID); err != nil {
		p.fail(outcome, models.StartFailure, err)
		return false
	}

	p.transition(outcome, models.Started)

	return true
}

// configure drives Started → Configuring → Ready. The clone shares the
// template's guest-level network identity until the strategy rewrites
// it, so the first poll targets the template address and the second the
// task's own.
func (p *Provisioner) configure(ctx context.Context, input RunInput, strategy guestnet.Strategy, outcome *models.Outcome) {
	task := outcome.Task

	templateRunner := p.runners(input.TemplateIP.String(), input.Credential)
	if !p.waitReady(ctx, templateRunner, outcome) {
		return
	}

	p.transition(outcome, models.Configuring)

	change := guestnet.NetworkChange{
		TemplateIP:   input.TemplateIP,
		NewIP:        task.IP,
		PrefixLength: input.Request.PrefixLength,
		Gateway:      input.Request.Gateway,
	}
	if err := strategy.Apply(ctx, templateRunner, change); err != nil {
		p.fail(outcome, models.NetworkConfigMismatch, err)
		return
	}

	cloneRunner := p.runners(task.IP.String(), input.Credential)
	if !p.waitReady(ctx, cloneRunner, outcome) {
		return
	}

	p.transition(outcome, models.Ready)
}

func (p *Provisioner) waitReady(ctx context.Context, runner remote.Runner, outcome *models.Outcome) bool {
	result, err := p.poller.WaitReady(ctx, runner)
	if err != nil {
		p.fail(outcome, models.ReadinessTimeout, err)
		return false
	}
	if result != readiness.Ready {
		p.fail(outcome, models.ReadinessTimeout, fmt.Errorf("attempt budget exhausted after %d attempts", p.poller.Attempts))
		return false
	}

	return true
}

// cleanup stops clones that failed after starting: such a clone still
// answers on the template's live address and would collide with the next
// run's readiness polls if left running.
func (p *Provisioner) cleanup(ctx context.Context, outcome *models.Outcome) {
	if outcome.State != models.Failed {
		return
	}
	if outcome.Failure != models.ReadinessTimeout && outcome.Failure != models.NetworkConfigMismatch {
		return
	}

	if err := p.controlPlane.Stop(ctx, outcome.Task.InstanceID); err != nil {
		p.log.WithFields(logrus.Fields{
			"instance": outcome.Task.InstanceID,
			"name":     outcome.Task.Name,
		}).WithError(err).Warn("failed to stop instance")
	}
}

func (p *Provisioner) transition(outcome *models.Outcome, state models.TaskState) {
	outcome.State = state
	p.log.WithFields(logrus.Fields{
		"instance": outcome.Task.InstanceID,
		"name":     outcome.Task.Name,
		"state":    state.String(),
	}).Info("task transition")
}

func (p *Provisioner) fail(outcome *models.Outcome, kind models.FailureKind, err error) {
	outcome.State = models.Failed
	outcome.Failure = kind
	outcome.Detail = err.Error()
	p.log.WithFields(logrus.Fields{
		"instance": outcome.Task.InstanceID,
		"name":     outcome.Task.Name,
		"failure":  kind.String(),
	}).WithError(err).Warn("task failed")
}

func New(config Config) *Provisioner {
	return &Provisioner{
		controlPlane: config.ControlPlane,
		runners:      config.Runners,
		poller:       config.Poller,
		log:          config.Log,
		concurrency:  config.Concurrency,
	}
}
