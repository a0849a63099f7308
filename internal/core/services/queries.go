// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package services

// BigQuery statements used by UsageService. The table placeholder takes the
// fully qualified usage table; @days bounds the window.
const (
	QryUsageByOperation = "SELECT operation, COUNT(*) AS requests, COUNTIF(succeeded) AS succeeded, " +
		"COUNTIF(NOT succeeded) AS failed, IFNULL(AVG(attempts), 0) AS avg_attempts FROM `%s` " +
		"WHERE create_date >= TIMESTAMP_SUB(CURRENT_TIMESTAMP(), INTERVAL @days DAY) " +
		"GROUP BY operation ORDER BY operation"

	QryRepurposeByStrategy = "SELECT strategy, COUNT(*) AS requests, COUNTIF(succeeded) AS succeeded FROM `%s` " +
		"WHERE operation = 'repurpose' AND strategy != '' " +
		"AND create_date >= TIMESTAMP_SUB(CURRENT_TIMESTAMP(), INTERVAL @days DAY) " +
		"GROUP BY strategy ORDER BY requests DESC"
)
