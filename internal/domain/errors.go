package domain

import "errors"

// Common domain errors
var (
	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionEnded    = errors.New("session already ended")

	// Message errors
	ErrInvalidRole = errors.New("invalid message role")

	// Agent errors
	ErrAgentNotInitialized = errors.New("agent not initialized")
	ErrMaxIterations       = errors.New("agent run exceeded maximum iterations")
	ErrRunFailed           = errors.New("agent run failed")

	// Tool errors
	ErrToolNotFound        = errors.New("tool not found")
	ErrToolExecutionFailed = errors.New("tool execution failed")
	ErrInvalidToolArgs     = errors.New("invalid tool arguments")

	// Rubric errors
	ErrRubricNotFound     = errors.New("rubric not found")
	ErrCompetencyNotFound = errors.New("competency not found")

	// Speech errors
	ErrNotConnected      = errors.New("not connected to speech service")
	ErrEmptyText         = errors.New("text is required")
	ErrTextTooLong       = errors.New("text is too long")
	ErrConnectionFailed  = errors.New("speech connection failed")
	ErrConnectionTimeout = errors.New("connection timeout")
	ErrSynthesisFailed   = errors.New("speech synthesis failed")
	ErrSynthesisRejected = errors.New("synthesis request rejected")
	ErrStreamInProgress  = errors.New("speech stream already in progress")
)
