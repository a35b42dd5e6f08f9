package extract

import (
	"fmt"
	"math/rand"
	"time"
)

// SeedSnapshot generates a small deterministic dev snapshot so the service can
// run without a warehouse connection.
func SeedSnapshot(now time.Time) Snapshot {
	rng := rand.New(rand.NewSource(42))

	origins := []string{"EMR", "LAB", "RAD", "Easily_HL7", "Easily_PDF", "DOC_EXTERNE_SCAN", "RDV_DOCTOLIB"}
	types := []string{"report", "note", "result", "letter"}

	var docs []DocumentRecord
	var archives []ArchiveRecord
	for i, origin := range origins {
		oldest := now.AddDate(-(10 + i), 0, 0)
		archives = append(archives, ArchiveRecord{
			Source:         origin,
			OldestDocument: oldest,
			Status:         "active",
		})
		for j := 0; j < 40+rng.Intn(60); j++ {
			created := now.AddDate(0, -rng.Intn(14), -rng.Intn(28))
			modified := created.Add(time.Duration(rng.Intn(72)) * time.Hour)
			uploaded := modified.Add(time.Duration(rng.Intn(24)) * time.Hour)
			docs = append(docs, DocumentRecord{
				ID:         fmt.Sprintf("%s-%04d", origin, j),
				Source:     origin,
				Type:       types[rng.Intn(len(types))],
				Title:      fmt.Sprintf("%s document %d", origin, j),
				PatientID:  fmt.Sprintf("p-%03d", rng.Intn(200)),
				CreatedAt:  &created,
				ModifiedAt: &modified,
				UploadedAt: &uploaded,
			})
		}
	}

	var patients []PatientRecord
	for i := 0; i < 200; i++ {
		birth := now.AddDate(-20-rng.Intn(60), 0, 0)
		patients = append(patients, PatientRecord{
			ID:          fmt.Sprintf("p-%03d", i),
			DisplayName: fmt.Sprintf("Patient %03d", i),
			BirthDate:   &birth,
			ObservedAt:  now.AddDate(0, 0, -rng.Intn(365)),
		})
	}
	// A few records the reconciler should act on.
	patients = append(patients,
		PatientRecord{ID: "p-test-1", DisplayName: "TEST Patient", ObservedAt: now},
		PatientRecord{ID: "p-anon-1", DisplayName: "TEST Anonymous Birth", ObservedAt: now},
	)

	users := []UserRecord{
		{ID: "u-1", Username: "admin admin", QueryTimes: queryTimes(rng, now, 40)},
		{ID: "u-2", Username: "codoc support", QueryTimes: queryTimes(rng, now, 25)},
		{ID: "u-3", Username: "Marie Curie", QueryTimes: queryTimes(rng, now, 60)},
		{ID: "u-4", Username: "Louis Pasteur", QueryTimes: queryTimes(rng, now, 15)},
	}

	return Snapshot{
		Patients:  patients,
		Documents: docs,
		Users:     users,
		Archives:  archives,
		TakenAt:   now,
	}
}

func queryTimes(rng *rand.Rand, now time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, now.AddDate(0, -rng.Intn(18), -rng.Intn(28)))
	}
	return out
}
