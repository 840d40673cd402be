package ai

import (
	"fmt"
	"strings"

	"civic-complaints/internal/scoring"
)

const systemPrompt = "You are an experienced municipal inspector reviewing photos attached to civic complaints. " +
	"Reply with a single JSON object and nothing else: no markdown, no code fences, no commentary."

// categoryInstructions holds the grading guide and reply shape per category.
// Unknown categories use the Garbage guide.
var categoryInstructions = map[string]string{
	scoring.CategoryGarbage: `Grade the garbage in the photo.

Severity (0-100) tracks how much of the visible area is covered:
- 0-20 scattered litter, a few items
- 21-40 noticeable accumulation
- 41-60 several piles or overflowing bins
- 61-80 heavy, widespread accumulation
- 81-100 area overwhelmed with waste

Priority: low under 30% coverage with no health risk; medium 30-50%; high 51-75% or visible health concerns; critical above 75% or a severe hazard.
Raise severity when medical or hazardous waste is visible. Count piles, name the waste types, note health risks such as mosquitoes, rodents or odour, and estimate cleanup effort in person-hours.

Reply shape:
{
  "severity": <0-100>,
  "coveragePercentage": <0-100>,
  "priorityLevel": "<low|medium|high|critical>",
  "detectedIssues": ["..."],
  "description": "<2-3 sentences>",
  "wasteTypes": ["..."],
  "estimatedVolume": "<small|medium|large|very_large>",
  "cleanupEffort": <hours>,
  "healthConcerns": ["..."],
  "confidence": <0-100>
}`,

	scoring.CategoryRoadDamage: `Grade the road damage in the photo.

Severity (0-100):
- 0-20 minor cracks or surface wear
- 21-40 visible cracks, potholes under 30cm
- 41-60 several potholes of 30-60cm, uneven surface
- 61-80 potholes over 60cm, deep cracks, structural damage
- 81-100 collapse or immediate danger

Priority: low for cosmetic damage under 25% of the surface; medium 25-50%; high 51-75% or a safety hazard; critical above 75% or immediate danger.
Raise severity for multiple potholes or structural damage. Estimate dimensions, count damaged areas and judge structural integrity.

Reply shape:
{
  "severity": <0-100>,
  "damagePercentage": <0-100>,
  "priorityLevel": "<low|medium|high|critical>",
  "detectedIssues": ["..."],
  "description": "<2-3 sentences with measurements>",
  "damageType": "<crack|pothole|collapse|surface_wear|multiple>",
  "estimatedSize": {"width": "<cm or m>", "depth": "<shallow|medium|deep>", "affectedArea": "<percent of road>"},
  "trafficImpact": "<low|medium|high|critical>",
  "safetyRisk": "<low|medium|high|critical>",
  "vehicleDamageRisk": "<low|medium|high|critical>",
  "repairUrgency": "<routine|soon|urgent|immediate>",
  "confidence": <0-100>
}`,

	scoring.CategoryWaterLeakage: `Grade the water leak in the photo.

Severity (0-100):
- 0-20 dripping, small wet patch
- 21-40 steady drip with pooling
- 41-60 continuous flow, puddles forming
- 61-80 strong flow, flooding risk
- 81-100 burst pipe, severe flooding

Estimate wastage: dripping 10-50 L/day, steady 100-500 L/day, strong 1000-5000 L/day, burst above 5000 L/day.

Reply shape:
{
  "severity": <0-100>,
  "priorityLevel": "<low|medium|high|critical>",
  "detectedIssues": ["..."],
  "description": "<2-3 sentences>",
  "flowRate": "<dripping|steady|strong|burst>",
  "estimatedWastage": <litres per day>,
  "infrastructureRisk": "<low|medium|high|critical>",
  "floodingRisk": "<low|medium|high|critical>",
  "confidence": <0-100>
}`,

	scoring.CategoryStreetLight: `Grade the street lighting fault in the photo.

Severity (0-100):
- 0-30 one light out on a quiet street
- 31-50 one light out with moderate traffic
- 51-70 several lights out or a busy area
- 71-100 whole street dark, serious safety concern

Reply shape:
{
  "severity": <0-100>,
  "priorityLevel": "<low|medium|high|critical>",
  "detectedIssues": ["..."],
  "description": "<2-3 sentences>",
  "outageExtent": "<single|multiple|entire_street>",
  "safetyImpact": "<low|medium|high|critical>",
  "areaType": "<residential|commercial|highway|rural>",
  "confidence": <0-100>
}`,

	scoring.CategoryDrainage: `Grade the drainage problem in the photo.

Severity (0-100):
- 0-30 partial blockage, slow drainage
- 31-50 significant blockage, standing water
- 51-70 severe blockage, overflow likely
- 71-100 complete blockage, actively overflowing

Reply shape:
{
  "severity": <0-100>,
  "priorityLevel": "<low|medium|high|critical>",
  "detectedIssues": ["..."],
  "description": "<2-3 sentences>",
  "blockageType": "<partial|significant|complete>",
  "overflowRisk": "<low|medium|high|critical>",
  "healthHazards": ["..."],
  "confidence": <0-100>
}`,
}

func buildUserPrompt(req Request) string {
	instructions, ok := categoryInstructions[req.Category]
	if !ok {
		instructions = categoryInstructions[scoring.CategoryGarbage]
	}
	builder := &strings.Builder{}
	fmt.Fprintf(builder, "Complaint category: %s\n", req.Category)
	if description := strings.TrimSpace(req.Description); description != "" {
		fmt.Fprintf(builder, "Citizen description: %q\n", description)
		fmt.Fprintf(builder, "Location: %q\n", strings.TrimSpace(req.Location))
		builder.WriteString("Weigh the photo and the description together. Words such as heavy, severe, urgent, critical, full of or overflowing should push severity up.\n")
	}
	builder.WriteString("\n")
	builder.WriteString(instructions)
	builder.WriteString("\n")
	return builder.String()
}
