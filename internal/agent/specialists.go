package agent

import (
	"fmt"
	"strings"

	"github.com/clinical-bridge/clinbridge/internal/llm"
)

// Agent names, one per pipeline phase.
const (
	NameDocumentation    = "clinical_documentation"
	NameCoding           = "medical_coding"
	NameCompliance       = "compliance"
	NamePriorAuth        = "prior_authorization"
	NameQualityAssurance = "quality_assurance"
)

const documentationSystem = `You are a clinical documentation specialist.
Structure unstructured physician notes into standardized SOAP format:
Subjective (chief complaint, HPI, ROS, histories), Objective (vitals, exam
findings, labs, imaging), Assessment (diagnoses with reasoning), and Plan
(treatment, orders, follow-up). Apply standardized medical terminology
aligned with SNOMED CT, ICD-10, and CPT vocabulary. Document pertinent
positives and negatives for each diagnosis, and flag documentation gaps
that could affect coding accuracy or compliance. Return the structured
documentation as JSON.`

const codingSystem = `You are a medical coding specialist. Given structured
clinical documentation, suggest ICD-10-CM diagnosis codes and CPT/HCPCS
procedure codes with the supporting documentation for each. Apply coding
guidelines for specificity, laterality, and combination codes, and note
any codes that cannot be assigned due to insufficient documentation.
Return the code suggestions as JSON.`

const complianceSystem = `You are a healthcare compliance specialist.
Validate clinical documentation and suggested codes against documentation
and billing compliance requirements: medical necessity, E/M level support,
code-documentation agreement, and payer documentation rules. Report each
finding with a severity and the documentation element it concerns. Return
the validation results as JSON.`

const priorAuthSystem = `You are a prior authorization specialist. Given a
procedure, a payer, and supporting clinical documentation, assess whether
prior authorization is likely required and whether the documentation
supports approval. Identify missing clinical criteria the payer will
expect. Return the assessment as JSON.`

const qualityAssuranceSystem = `You are a clinical quality assurance
reviewer. Compare the original physician note against the structured
documentation, suggested codes, and compliance findings produced by the
earlier phases. Verify nothing was fabricated or dropped, confirm the
codes follow from the documentation, and issue a final verdict with any
items requiring human attention. Return the review as JSON.`

// NewDocumentationAgent creates the clinical documentation specialist.
// It structures the raw note; the only required input is the note itself.
func NewDocumentationAgent(provider llm.Provider, opts ...LLMAgentOption) *LLMAgent {
	return newLLMAgent(NameDocumentation, documentationSystem, provider,
		func(inputs map[string]string) (string, error) {
			if err := requireInputs(inputs, InputNote); err != nil {
				return "", err
			}
			var b strings.Builder
			fmt.Fprintf(&b, "Structure the following physician note:\n\n%s\n", inputs[InputNote])
			appendContext(&b, inputs)
			return b.String(), nil
		}, opts...)
}

// NewCodingAgent creates the medical coding specialist. It consumes the
// documentation phase's output.
func NewCodingAgent(provider llm.Provider, opts ...LLMAgentOption) *LLMAgent {
	return newLLMAgent(NameCoding, codingSystem, provider,
		func(inputs map[string]string) (string, error) {
			if err := requireInputs(inputs, InputDocumentation); err != nil {
				return "", err
			}
			var b strings.Builder
			fmt.Fprintf(&b, "Suggest codes for the following structured documentation:\n\n%s\n", inputs[InputDocumentation])
			appendContext(&b, inputs)
			return b.String(), nil
		}, opts...)
}

// NewComplianceAgent creates the compliance validation specialist. It
// consumes the documentation and coding outputs.
func NewComplianceAgent(provider llm.Provider, opts ...LLMAgentOption) *LLMAgent {
	return newLLMAgent(NameCompliance, complianceSystem, provider,
		func(inputs map[string]string) (string, error) {
			if err := requireInputs(inputs, InputDocumentation, InputCodes); err != nil {
				return "", err
			}
			var b strings.Builder
			fmt.Fprintf(&b, "Validate the following documentation and codes.\n\nDocumentation:\n%s\n\nSuggested codes:\n%s\n",
				inputs[InputDocumentation], inputs[InputCodes])
			appendContext(&b, inputs)
			return b.String(), nil
		}, opts...)
}

// NewPriorAuthAgent creates the prior authorization specialist. It consumes
// the documentation output plus the payer and procedure.
func NewPriorAuthAgent(provider llm.Provider, opts ...LLMAgentOption) *LLMAgent {
	return newLLMAgent(NamePriorAuth, priorAuthSystem, provider,
		func(inputs map[string]string) (string, error) {
			if err := requireInputs(inputs, InputDocumentation, InputPayer, InputProcedure); err != nil {
				return "", err
			}
			var b strings.Builder
			fmt.Fprintf(&b, "Assess prior authorization for procedure %q with payer %q.\n\nSupporting documentation:\n%s\n",
				inputs[InputProcedure], inputs[InputPayer], inputs[InputDocumentation])
			appendContext(&b, inputs)
			return b.String(), nil
		}, opts...)
}

// NewQualityAssuranceAgent creates the final review specialist. It consumes
// the raw note plus every earlier phase's output; the compliance section is
// optional so a review can still run when compliance content is absent.
func NewQualityAssuranceAgent(provider llm.Provider, opts ...LLMAgentOption) *LLMAgent {
	return newLLMAgent(NameQualityAssurance, qualityAssuranceSystem, provider,
		func(inputs map[string]string) (string, error) {
			if err := requireInputs(inputs, InputNote, InputDocumentation, InputCodes); err != nil {
				return "", err
			}
			var b strings.Builder
			fmt.Fprintf(&b, "Review the pipeline output against the original note.\n\nOriginal note:\n%s\n\nStructured documentation:\n%s\n\nSuggested codes:\n%s\n",
				inputs[InputNote], inputs[InputDocumentation], inputs[InputCodes])
			if compliance := inputs[InputCompliance]; compliance != "" {
				fmt.Fprintf(&b, "\nCompliance findings:\n%s\n", compliance)
			}
			appendContext(&b, inputs)
			return b.String(), nil
		}, opts...)
}

// appendContext appends shared context lines (patient id, payer) when
// present in the inputs.
func appendContext(b *strings.Builder, inputs map[string]string) {
	if id := inputs[InputPatientID]; id != "" {
		fmt.Fprintf(b, "\nPatient ID: %s\n", id)
	}
	if payer := inputs[InputPayer]; payer != "" {
		fmt.Fprintf(b, "\nPayer: %s\n", payer)
	}
}
