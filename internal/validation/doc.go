// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

// Package validation provides struct validation using go-playground/validator v10.
//
// The package keeps a thread-safe singleton validator with two custom tags and
// translates failures into short messages that name the CSV column at fault.
//
// # Custom Tags
//
//   - refdes: a 4-token hyphen-delimited reference designator
//   - isotime: an ISO-8601 timestamp accepted by models.ParseTimestamp
//
// Field names in messages come from the struct's csv tag:
//
//	type streamRequest struct {
//	    Sensor    string `csv:"sensor" validate:"required,refdes"`
//	    BeginTime string `csv:"beginTime" validate:"required,isotime"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    // verr.Error() == "sensor must be a 4-token reference designator"
//	}
package validation
