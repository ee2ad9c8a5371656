// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

/*
Package models defines the data structures shared by the asynctds commands.

Key Components:

  - StreamRecord: one row of sensor-stream metadata (master, known-streams and
    request queue files all use it)
  - StreamTimes: one entry of the UFrame metadata "times" array
  - Reason constants: the status strings carried by request queue entries

StreamRecord keeps typed fields for the columns the tools understand and
retains every other column verbatim, along with the original header order, so
a file read and written back keeps its layout. Column lookup is
case-insensitive, and the sensor can come from any of the "sensor",
"instrument" or "reference designator" columns.

Timestamps stay strings on the record, exactly as UFrame reported them.
ParseTimestamp is used wherever two of them have to be compared.
*/
package models
