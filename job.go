// go-nfcsession
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-nfcsession.
//
// go-nfcsession is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-nfcsession is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-nfcsession; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package nfcsession

import (
	"context"
	"fmt"
	"time"
)

// JobKind identifies the kind of session a job requests
type JobKind int

// Job kinds
const (
	KindTech JobKind = iota + 1
	KindTechLoop
	KindTagEvent
	KindTagEventLoop
)

func (k JobKind) String() string {
	switch k {
	case KindTech:
		return "tech"
	case KindTechLoop:
		return "tech_loop"
	case KindTagEvent:
		return "tag_event"
	case KindTagEventLoop:
		return "tag_event_loop"
	default:
		return fmt.Sprintf("JobKind(%d)", int(k))
	}
}

// TechFunc runs while a technology session is open.
type TechFunc func(ctx context.Context) error

// TagFunc handles a discovered tag.
type TagFunc func(ctx context.Context, tag *Tag) error

// Job is a unit of radio work. It is one of TechJob, TechLoopJob,
// TagEventJob or TagEventLoopJob.
type Job interface {
	Kind() JobKind
	isJob()
}

// TechJob opens one technology session, runs OnTechnology and releases the
// radio. AfterTechnology runs after a successful session.
type TechJob struct {
	OnTechnology    TechFunc
	AfterTechnology TechFunc
	Options         *RequestOptions
	Techs           []Tech
}

// TechLoopJob repeats a TechJob until the engine is stopped.
type TechLoopJob struct {
	OnTechnology    TechFunc
	AfterTechnology TechFunc
	Options         *RequestOptions
	Techs           []Tech
}

// TagEventJob waits for the first discovered tag and hands it to OnTag.
type TagEventJob struct {
	OnTag   TagFunc
	Options *RequestOptions
}

// TagEventLoopJob hands every discovered tag to OnTag until the engine is
// stopped. Tags discovered while OnTag runs, or within Cooldown after it
// returns, are dropped.
type TagEventLoopJob struct {
	OnTag    TagFunc
	Options  *RequestOptions
	Cooldown time.Duration
}

func (TechJob) Kind() JobKind         { return KindTech }
func (TechLoopJob) Kind() JobKind     { return KindTechLoop }
func (TagEventJob) Kind() JobKind     { return KindTagEvent }
func (TagEventLoopJob) Kind() JobKind { return KindTagEventLoop }

func (TechJob) isJob()         {}
func (TechLoopJob) isJob()     {}
func (TagEventJob) isJob()     {}
func (TagEventLoopJob) isJob() {}

func validateJob(job Job) error {
	switch j := job.(type) {
	case TechJob:
		return validateTech(j.Techs, j.OnTechnology)
	case TechLoopJob:
		return validateTech(j.Techs, j.OnTechnology)
	case TagEventJob:
		if j.OnTag == nil {
			return fmt.Errorf("%w: OnTag is required", ErrInvalidJob)
		}
	case TagEventLoopJob:
		if j.OnTag == nil {
			return fmt.Errorf("%w: OnTag is required", ErrInvalidJob)
		}
		if j.Cooldown < 0 {
			return fmt.Errorf("%w: negative cooldown", ErrInvalidJob)
		}
	case nil:
		return ErrNoStrategyFound
	default:
		return fmt.Errorf("%w: %T", ErrNoStrategyFound, job)
	}
	return nil
}

func validateTech(techs []Tech, fn TechFunc) error {
	if len(techs) == 0 {
		return fmt.Errorf("%w: at least one technology is required", ErrInvalidJob)
	}
	if fn == nil {
		return fmt.Errorf("%w: OnTechnology is required", ErrInvalidJob)
	}
	return nil
}

// prepareJob copies the job so later changes by the caller have no effect
// and fills in default request options.
func prepareJob(job Job, defaults *RequestOptions) Job {
	switch j := job.(type) {
	case TechJob:
		j.Techs = append([]Tech(nil), j.Techs...)
		j.Options = withDefaults(j.Options, defaults)
		return j
	case TechLoopJob:
		j.Techs = append([]Tech(nil), j.Techs...)
		j.Options = withDefaults(j.Options, defaults)
		return j
	case TagEventJob:
		j.Options = withDefaults(j.Options, defaults)
		return j
	case TagEventLoopJob:
		j.Options = withDefaults(j.Options, defaults)
		return j
	}
	return job
}

func withDefaults(opts, defaults *RequestOptions) *RequestOptions {
	if opts != nil {
		c := *opts
		return &c
	}
	if defaults != nil {
		c := *defaults
		return &c
	}
	return nil
}

// targetState maps a job to the state the machine enters while it runs
func targetState(kind JobKind) SessionState {
	switch kind {
	case KindTech:
		return StateTech
	case KindTechLoop:
		return StateTechLoop
	case KindTagEvent:
		return StateTagEvent
	case KindTagEventLoop:
		return StateTagEventLoop
	default:
		return StateIdle
	}
}
